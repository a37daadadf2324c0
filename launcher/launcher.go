// Package launcher wires the startup sequence: fetch the guest and the asset,
// instantiate, validate the guest contract, decode the asset, move it into
// guest memory, create the game state and its presentation surface.
//
// Contract and asset errors are fatal. Nothing crosses into guest memory
// unless the asset decoded cleanly.
package launcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/fetch"
	"github.com/wippyai/pixelbridge/game"
	"github.com/wippyai/pixelbridge/guard"
	"github.com/wippyai/pixelbridge/guest"
)

// App is a started guest with its game session.
type App struct {
	Engine   *engine.Engine
	Instance *engine.Instance
	Bridge   *bridge.Bridge
	Session  *game.Session
	Image    *asset.Image
}

// InstallLogger sets l as the logger of every package.
func InstallLogger(l *zap.Logger) {
	SetLogger(l)
	asset.SetLogger(l)
	bridge.SetLogger(l)
	engine.SetLogger(l)
	fetch.SetLogger(l)
	game.SetLogger(l)
	guard.SetLogger(l)
}

// Start runs the startup sequence.
func Start(ctx context.Context, cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		InstallLogger(cfg.Logger)
	}
	log := Logger()

	moduleBytes, assetBytes, err := fetchInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}
	app, err := start(ctx, cfg, e, moduleBytes, assetBytes)
	if err != nil {
		_ = e.Close(ctx)
		log.Error("startup failed", zap.Error(err))
		return nil, err
	}

	log.Info("started",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("asset_pixels", app.Image.Pixels()),
		zap.Uint32("memory_bytes", app.Instance.MemorySize()))
	return app, nil
}

func start(ctx context.Context, cfg *Config, e *engine.Engine, moduleBytes, assetBytes []byte) (*App, error) {
	inst, err := e.Load(ctx, moduleBytes)
	if err != nil {
		return nil, err
	}
	b := bridge.New(inst)

	if err := guard.Validate(ctx, inst, b); err != nil {
		return nil, err
	}

	img, err := asset.Decoder{Framing: cfg.Framing, MaxPixels: cfg.MaxPixels}.Decode(assetBytes)
	if err != nil {
		return nil, err
	}

	images, err := b.CopyIn(ctx, img.Pix)
	if err != nil {
		return nil, err
	}
	sess, err := game.NewSession(ctx, inst, b, cfg.Width, cfg.Height, images)

	// The guest copied the atlas into its own state.
	if rerr := images.Release(ctx); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}

	return &App{
		Engine:   e,
		Instance: inst,
		Bridge:   b,
		Session:  sess,
		Image:    img,
	}, nil
}

// fetchInputs retrieves the module and asset concurrently. Both fetches
// complete before any guest memory is touched.
func fetchInputs(ctx context.Context, cfg *Config) (moduleBytes, assetBytes []byte, err error) {
	f := cfg.Fetcher
	if f == nil {
		f = fetch.New()
	}

	var (
		wg                  sync.WaitGroup
		moduleErr, assetErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if cfg.Module == "" {
			moduleBytes = guest.Default()
			return
		}
		moduleBytes, moduleErr = f.Load(ctx, cfg.Module)
	}()
	go func() {
		defer wg.Done()
		assetBytes, assetErr = f.Load(ctx, cfg.Asset)
	}()
	wg.Wait()

	if moduleErr != nil {
		return nil, nil, moduleErr
	}
	if assetErr != nil {
		return nil, nil, assetErr
	}
	return moduleBytes, assetBytes, nil
}

// Run renders n frames spaced frameMillis apart, starting at time start,
// with constant controls.
func (a *App) Run(ctx context.Context, n int, start, frameMillis uint32, c game.Controls) error {
	now := start
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Session.Frame(ctx, now, c); err != nil {
			return err
		}
		now += frameMillis
	}
	return nil
}

// Close releases the guest and the runtime.
func (a *App) Close(ctx context.Context) error {
	if a.Instance != nil {
		_ = a.Instance.Close(ctx)
	}
	return a.Engine.Close(ctx)
}
