package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/pixelbridge"
	"github.com/wippyai/pixelbridge/errors"
)

type boundFunc struct {
	fn      api.Function
	results int
}

// Instance is a running guest.
type Instance struct {
	engine  *Engine
	module  api.Module
	env     api.Module
	memory  *Memory
	funcs   map[string]*boundFunc
	exports Exports
}

// Exports returns the bound export names.
func (i *Instance) Exports() Exports {
	return i.exports
}

func (i *Instance) lookup(name string) *boundFunc {
	if bf, ok := i.funcs[name]; ok {
		return bf
	}
	if i.module == nil {
		return nil
	}
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	bf := &boundFunc{fn: fn, results: len(fn.Definition().ResultTypes())}
	i.funcs[name] = bf
	return bf
}

// Has reports whether the guest exports a function called name.
func (i *Instance) Has(name string) bool {
	return i.lookup(name) != nil
}

// Require fails with a not-found error for the first missing export.
func (i *Instance) Require(names ...string) error {
	for _, name := range names {
		if !i.Has(name) {
			return errors.NotFound(errors.PhaseLoad, "export", name)
		}
	}
	return nil
}

// Call invokes an exported function with raw wasm arguments.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.module == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	bf := i.lookup(name)
	if bf == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	res, err := bf.fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Call(errors.PhaseRuntime, name, err)
	}
	return res, nil
}

// CallU32 invokes an export that returns a single i32.
func (i *Instance) CallU32(ctx context.Context, name string, args ...uint64) (uint32, error) {
	res, err := i.Call(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Path(name).
			Detail("expected 1 result, got %d", len(res)).
			Build()
	}
	return api.DecodeU32(res[0]), nil
}

// NewArray asks the guest for a zeroed array of length bytes.
func (i *Instance) NewArray(ctx context.Context, length uint32) (uint32, error) {
	return i.CallU32(ctx, i.exports.NewArray, api.EncodeU32(length))
}

// FreeArray returns an array to the guest.
func (i *Instance) FreeArray(ctx context.Context, handle uint32) error {
	_, err := i.Call(ctx, i.exports.FreeArray, api.EncodeU32(handle))
	return err
}

// ArrayData returns the data pointer of an array.
func (i *Instance) ArrayData(ctx context.Context, handle uint32) (uint32, error) {
	return i.CallU32(ctx, i.exports.ArrayData, api.EncodeU32(handle))
}

// ArrayLength returns the byte length of an array.
func (i *Instance) ArrayLength(ctx context.Context, handle uint32) (uint32, error) {
	return i.CallU32(ctx, i.exports.ArrayLength, api.EncodeU32(handle))
}

// ConstantProbe calls the constant probe export.
func (i *Instance) ConstantProbe(ctx context.Context) (uint32, error) {
	return i.CallU32(ctx, i.exports.ConstantProbe)
}

// ArrayProbe calls the array probe export and returns the array handle.
func (i *Instance) ArrayProbe(ctx context.Context) (uint32, error) {
	return i.CallU32(ctx, i.exports.ArrayProbe)
}

// Memory returns the guest linear memory, or nil after Close.
func (i *Instance) Memory() pixelbridge.Memory {
	if i.memory == nil {
		return nil
	}
	return i.memory
}

// MemorySize returns the current linear memory size in bytes.
func (i *Instance) MemorySize() uint32 {
	if i.memory == nil {
		return 0
	}
	return i.memory.Size()
}

// LinearMemory returns the concrete memory wrapper.
func (i *Instance) LinearMemory() *Memory {
	return i.memory
}

func (i *Instance) releaseEnv(ctx context.Context) error {
	if i.env == nil {
		return nil
	}
	err := i.env.Close(ctx)
	i.env = nil
	i.engine.releaseEnv()
	return err
}

// Close closes the guest and its env memory provider.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.module != nil {
		if err := i.module.Close(ctx); err != nil {
			firstErr = err
		}
		i.module = nil
	}
	if err := i.releaseEnv(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	i.funcs = nil
	i.memory = nil
	return firstErr
}
