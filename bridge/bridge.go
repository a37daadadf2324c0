package bridge

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge"
	"github.com/wippyai/pixelbridge/errors"
)

// ABI is the guest capability set the bridge depends on.
type ABI interface {
	// NewArray reserves a zeroed array of length bytes and returns its handle.
	NewArray(ctx context.Context, length uint32) (uint32, error)
	// FreeArray lets the guest reclaim an array.
	FreeArray(ctx context.Context, handle uint32) error
	// ArrayData returns the data pointer of an array.
	ArrayData(ctx context.Context, handle uint32) (uint32, error)
	// ArrayLength returns the byte length of an array.
	ArrayLength(ctx context.Context, handle uint32) (uint32, error)
	// Memory returns the guest linear memory.
	Memory() pixelbridge.Memory
}

// Bridge copies host bytes into guest arrays and exposes scoped views of them.
type Bridge struct {
	abi ABI
}

// New creates a bridge over the given guest ABI.
func New(abi ABI) *Bridge {
	return &Bridge{abi: abi}
}

// region is a resolved (pointer, length) pair in guest memory.
type region struct {
	ptr    uint32
	length uint32
}

func (b *Bridge) memory() (pixelbridge.Memory, error) {
	mem := b.abi.Memory()
	if mem == nil {
		return nil, errors.NotInitialized(errors.PhaseBridge, "guest memory")
	}
	return mem, nil
}

// resolve turns a handle into its region via the data-pointer and length
// exports and checks it lies inside the current memory.
func (b *Bridge) resolve(ctx context.Context, mem pixelbridge.Memory, handle uint32) (region, error) {
	if handle == 0 {
		return region{}, errors.InvalidInput(errors.PhaseBridge, "null array handle")
	}
	ptr, err := b.abi.ArrayData(ctx, handle)
	if err != nil {
		return region{}, errors.Call(errors.PhaseBridge, "data-pointer-of", err)
	}
	length, err := b.abi.ArrayLength(ctx, handle)
	if err != nil {
		return region{}, errors.Call(errors.PhaseBridge, "length-of", err)
	}
	if size := mem.Size(); uint64(ptr)+uint64(length) > uint64(size) {
		return region{}, errors.OutOfBounds(errors.PhaseBridge, ptr, length, size)
	}
	return region{ptr: ptr, length: length}, nil
}

// CopyIn allocates a guest array of len(data) bytes, copies data into it and
// returns the owning Buffer. The write goes through a transient view that is
// not retained.
func (b *Bridge) CopyIn(ctx context.Context, data []byte) (*Buffer, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, errors.InvalidInput(errors.PhaseBridge, fmt.Sprintf("buffer of %d bytes exceeds 32-bit memory", len(data)))
	}
	mem, err := b.memory()
	if err != nil {
		return nil, err
	}
	n := uint32(len(data))

	handle, err := b.abi.NewArray(ctx, n)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseBridge, n, err)
	}
	if handle == 0 {
		return nil, errors.AllocationFailed(errors.PhaseBridge, n, nil)
	}

	// Resolve after allocation: the allocation itself may have grown memory.
	r, err := b.resolve(ctx, mem, handle)
	if err != nil {
		b.free(ctx, handle)
		return nil, err
	}
	if r.length != n {
		b.free(ctx, handle)
		return nil, errors.InvalidData(errors.PhaseBridge,
			fmt.Sprintf("guest allocated %d bytes, requested %d", r.length, n))
	}
	if err := mem.Write(r.ptr, data); err != nil {
		b.free(ctx, handle)
		return nil, errors.Wrap(errors.PhaseBridge, errors.KindOutOfBounds, err, "copy into guest array")
	}

	Logger().Debug("copied buffer into guest",
		zap.Uint32("handle", handle),
		zap.Uint32("ptr", r.ptr),
		zap.Uint32("length", n))

	return &Buffer{bridge: b, handle: handle, ptr: r.ptr, length: n}, nil
}

func (b *Bridge) free(ctx context.Context, handle uint32) {
	if err := b.abi.FreeArray(ctx, handle); err != nil {
		Logger().Warn("free guest array failed",
			zap.Uint32("handle", handle),
			zap.Error(err))
	}
}

// Adopt takes ownership of an array the guest created, such as a probe result.
func (b *Bridge) Adopt(ctx context.Context, handle uint32) (*Buffer, error) {
	mem, err := b.memory()
	if err != nil {
		return nil, err
	}
	r, err := b.resolve(ctx, mem, handle)
	if err != nil {
		return nil, err
	}
	return &Buffer{bridge: b, handle: handle, ptr: r.ptr, length: r.length}, nil
}

// View resolves handle and passes a zero-copy view of its bytes to fn.
//
// The slice is bound to the current backing store and must not be retained
// after fn returns. If the memory is resized while fn runs, View returns an
// invalidation error wrapping any error from fn.
func (b *Bridge) View(ctx context.Context, handle uint32, fn func([]byte) error) error {
	mem, err := b.memory()
	if err != nil {
		return err
	}
	r, err := b.resolve(ctx, mem, handle)
	if err != nil {
		return err
	}

	before := mem.Size()
	data, err := mem.Read(r.ptr, r.length)
	if err != nil {
		return errors.Wrap(errors.PhaseBridge, errors.KindOutOfBounds, err, "view guest array")
	}

	ferr := fn(data[:len(data):len(data)])

	if after := mem.Size(); after != before {
		Logger().Warn("guest memory resized during view",
			zap.Uint32("handle", handle),
			zap.Uint32("before", before),
			zap.Uint32("after", after))
		return errors.Invalidation(before, after, ferr)
	}
	return ferr
}

// ViewClamped is View with a clamped-byte view, used for presentable pixels.
func (b *Bridge) ViewClamped(ctx context.Context, handle uint32, fn func(Clamped) error) error {
	return b.View(ctx, handle, func(data []byte) error {
		return fn(Clamped{data: data})
	})
}

// ReadBytes copies an array out of guest memory. The result is host owned
// and safe to keep.
func (b *Bridge) ReadBytes(ctx context.Context, handle uint32) ([]byte, error) {
	var out []byte
	err := b.View(ctx, handle, func(data []byte) error {
		out = append(make([]byte, 0, len(data)), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clamped is a view whose writes saturate to [0, 255]. It follows the same
// lifetime rule as the slice passed to View.
type Clamped struct {
	data []byte
}

// Len returns the number of bytes in the view.
func (c Clamped) Len() int { return len(c.data) }

// At returns the byte at i.
func (c Clamped) At(i int) uint8 { return c.data[i] }

// Set stores v at i, clamped to [0, 255].
func (c Clamped) Set(i int, v int) {
	switch {
	case v < 0:
		c.data[i] = 0
	case v > math.MaxUint8:
		c.data[i] = math.MaxUint8
	default:
		c.data[i] = uint8(v)
	}
}

// Bytes returns the underlying slice.
func (c Clamped) Bytes() []byte { return c.data }

// CopyTo copies the view into dst and returns the number of bytes copied.
func (c Clamped) CopyTo(dst []byte) int { return copy(dst, c.data) }
