package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/fetch"
	"github.com/wippyai/pixelbridge/launcher"
)

const envPrefix = "PIXELBRIDGE_"

func main() {
	app := cli.NewApp()

	app.Name = "pixelbridge"
	app.Usage = "Run a wasm game guest against a hex-framed image atlas"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "module",
			Aliases: []string{"m"},
			EnvVars: []string{envPrefix + "MODULE"},
			Usage:   "guest module location (path or URL); empty uses the built-in guest",
		},
		&cli.StringFlag{
			Name:    "asset",
			Aliases: []string{"a"},
			EnvVars: []string{envPrefix + "ASSET"},
			Usage:   "image atlas location (path or URL)",
		},
		&cli.StringFlag{
			Name:    "framing",
			EnvVars: []string{envPrefix + "FRAMING"},
			Value:   asset.FramingHex.String(),
			Usage:   "asset framing: hex or binary",
		},
		&cli.IntFlag{
			Name:    "width",
			EnvVars: []string{envPrefix + "WIDTH"},
			Value:   launcher.DefaultWidth,
			Usage:   "viewport width in pixels",
		},
		&cli.IntFlag{
			Name:    "height",
			EnvVars: []string{envPrefix + "HEIGHT"},
			Value:   launcher.DefaultHeight,
			Usage:   "viewport height in pixels",
		},
		&cli.UintFlag{
			Name:    "memory-pages",
			EnvVars: []string{envPrefix + "MEMORY_PAGES"},
			Value:   engine.DefaultMemoryPages,
			Usage:   "initial pages of the provided env memory",
		},
		&cli.UintFlag{
			Name:    "memory-limit",
			EnvVars: []string{envPrefix + "MEMORY_LIMIT"},
			Usage:   "maximum guest memory in pages (0 = runtime default)",
		},
		&cli.Int64Flag{
			Name:    "max-bytes",
			EnvVars: []string{envPrefix + "MAX_BYTES"},
			Usage:   "cap on fetched module and asset sizes (0 = unlimited)",
		},
		&cli.IntFlag{
			Name:    "max-pixels",
			EnvVars: []string{envPrefix + "MAX_PIXELS"},
			Usage:   "cap on decoded asset pixels (0 = default, negative = unlimited)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			EnvVars: []string{envPrefix + "VERBOSE"},
			Usage:   "log at debug level to stderr",
		},
	}

	app.Before = func(c *cli.Context) error {
		logger, err := newLogger(c.Bool("verbose"))
		if err != nil {
			return err
		}
		launcher.InstallLogger(logger)
		return nil
	}
	app.After = func(c *cli.Context) error {
		_ = launcher.Logger().Sync()
		return nil
	}

	app.Commands = []*cli.Command{
		probeCommand(),
		decodeCommand(),
		runCommand(),
		viewCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// options is the flag set shared by every command.
type options struct {
	module      string
	asset       string
	framing     string
	width       int
	height      int
	memoryPages uint
	memoryLimit uint
	maxBytes    int64
	maxPixels   int
}

func optionsFrom(c *cli.Context) options {
	return options{
		module:      c.String("module"),
		asset:       c.String("asset"),
		framing:     c.String("framing"),
		width:       c.Int("width"),
		height:      c.Int("height"),
		memoryPages: c.Uint("memory-pages"),
		memoryLimit: c.Uint("memory-limit"),
		maxBytes:    c.Int64("max-bytes"),
		maxPixels:   c.Int("max-pixels"),
	}
}

func (o options) engineConfig() *engine.Config {
	cfg := engine.DefaultConfig()
	cfg.MemoryPages = uint32(o.memoryPages)
	cfg.MemoryLimitPages = uint32(o.memoryLimit)
	return cfg
}

func (o options) fetcher() *fetch.Fetcher {
	f := fetch.New()
	f.MaxBytes = o.maxBytes
	return f
}

func (o options) launcherConfig() (*launcher.Config, error) {
	framing, err := asset.ParseFraming(o.framing)
	if err != nil {
		return nil, err
	}
	cfg := launcher.DefaultConfig(o.asset)
	cfg.Module = o.module
	cfg.Framing = framing
	cfg.MaxPixels = o.maxPixels
	cfg.Width = o.width
	cfg.Height = o.height
	cfg.Engine = o.engineConfig()
	cfg.Fetcher = o.fetcher()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
