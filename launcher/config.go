package launcher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/errors"
	"github.com/wippyai/pixelbridge/fetch"
)

// Default viewport.
const (
	DefaultWidth  = 320
	DefaultHeight = 160
)

// Config describes one startup.
type Config struct {
	// Engine configures the wasm runtime. Nil uses engine.DefaultConfig.
	Engine *engine.Config
	// Fetcher retrieves the module and asset. Nil uses fetch.New.
	Fetcher *fetch.Fetcher
	// Logger, when set, is installed into every package logger.
	Logger *zap.Logger
	// Module is the guest location. Empty selects the built-in guest.
	Module string
	// Asset is the location of the image atlas.
	Asset   string
	Framing asset.Framing
	// MaxPixels caps the decoded asset. 0 uses asset.DefaultMaxPixels and a
	// negative value disables the cap.
	MaxPixels int
	Width     int
	Height    int
}

// DefaultConfig returns a configuration for the built-in guest with the given
// asset location.
func DefaultConfig(assetLocation string) *Config {
	return &Config{
		Asset:   assetLocation,
		Framing: asset.FramingHex,
		Width:   DefaultWidth,
		Height:  DefaultHeight,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Asset == "" {
		return errors.InvalidInput(errors.PhaseConfig, "asset location is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("invalid viewport %dx%d", c.Width, c.Height))
	}
	if c.Framing != asset.FramingHex && c.Framing != asset.FramingBinary {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown framing %v", c.Framing))
	}
	if c.Engine != nil {
		if err := c.Engine.Validate(); err != nil {
			return err
		}
	}
	return nil
}
