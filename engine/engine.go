package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/errors"
	"github.com/wippyai/pixelbridge/wasm"
)

// Defaults for imported memory provisioning.
const (
	DefaultMemoryPages = 50
	envModule          = "env"
	envMemory          = "memory"
)

// Config holds configuration for engine creation
type Config struct {
	// Exports names the guest functions to bind. Empty names take the
	// reference guest's defaults.
	Exports Exports

	// MemoryPages is the initial size in pages (64KB each) of the memory
	// provided to guests that import env.memory.
	MemoryPages uint32

	// MemoryLimitPages sets the maximum memory per instance in pages.
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Exports:     DefaultExports(),
		MemoryPages: DefaultMemoryPages,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MemoryPages == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "memory pages must be positive")
	}
	if c.MemoryLimitPages > 0 && c.MemoryPages > c.MemoryLimitPages {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("memory pages %d exceed limit %d", c.MemoryPages, c.MemoryLimitPages))
	}
	return nil
}

// Engine owns a wazero runtime. Only one live instance at a time may use the
// provisioned env memory.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config
	mu      sync.Mutex
	envBusy bool
}

// New creates an engine. A nil cfg uses DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:     *cfg,
	}
	e.cfg.Exports = cfg.Exports.withDefaults()
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Close releases the runtime and every instance created from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Load compiles and instantiates a guest, provisioning env.memory when the
// guest imports it, and resolves the required exports.
func (e *Engine) Load(ctx context.Context, bin []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	defer compiled.Close(ctx)

	inst := &Instance{
		engine:  e,
		exports: e.cfg.Exports,
		funcs:   make(map[string]*boundFunc),
	}

	if importsEnvMemory(compiled) {
		env, err := e.provisionMemory(ctx)
		if err != nil {
			return nil, err
		}
		inst.env = env
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		_ = inst.releaseEnv(ctx)
		return nil, errors.Instantiation(err)
	}
	inst.module = mod

	mem := mod.Memory()
	if mem == nil && inst.env != nil {
		mem = inst.env.Memory()
	}
	if mem == nil {
		_ = inst.Close(ctx)
		return nil, errors.NotFound(errors.PhaseLoad, "memory", envMemory)
	}
	inst.memory = NewMemory(mem)

	if err := inst.Require(e.cfg.Exports.Required()...); err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}

	Logger().Debug("guest loaded",
		zap.Bool("imported_memory", inst.env != nil),
		zap.Uint32("memory_pages", inst.memory.Pages()),
		zap.Int("exports", len(mod.ExportedFunctionDefinitions())))

	return inst, nil
}

func importsEnvMemory(compiled wazero.CompiledModule) bool {
	for _, def := range compiled.ImportedMemories() {
		if mod, name, ok := def.Import(); ok && mod == envModule && name == envMemory {
			return true
		}
	}
	return false
}

// provisionMemory instantiates a module named env that exports a memory of
// MemoryPages pages.
func (e *Engine) provisionMemory(ctx context.Context) (api.Module, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.envBusy {
		return nil, errors.InvalidInput(errors.PhaseLoad, "env.memory is already provided to a live instance")
	}

	provider := &wasm.Module{}
	provider.DeclareMemory(wasm.Limits{Min: e.cfg.MemoryPages, Max: e.cfg.MemoryLimitPages})
	provider.ExportMemory(envMemory)

	env, err := e.runtime.InstantiateWithConfig(ctx, provider.Encode(),
		wazero.NewModuleConfig().WithName(envModule))
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	e.envBusy = true

	Logger().Debug("provisioned env.memory", zap.Uint32("pages", e.cfg.MemoryPages))
	return env, nil
}

func (e *Engine) releaseEnv() {
	e.mu.Lock()
	e.envBusy = false
	e.mu.Unlock()
}
