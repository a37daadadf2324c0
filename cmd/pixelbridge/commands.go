package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/game"
	"github.com/wippyai/pixelbridge/guard"
	"github.com/wippyai/pixelbridge/guest"
	"github.com/wippyai/pixelbridge/launcher"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Load the guest and check its lifecycle probes",
		Action: func(c *cli.Context) error {
			return probe(c.Context, optionsFrom(c), c.App.Writer)
		},
	}
}

func probe(ctx context.Context, o options, w io.Writer) error {
	bin := guest.Default()
	if o.module != "" {
		var err error
		if bin, err = o.fetcher().Load(ctx, o.module); err != nil {
			return err
		}
	}

	e, err := engine.New(ctx, o.engineConfig())
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	inst, err := e.Load(ctx, bin)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	if err := guard.Validate(ctx, inst, bridge.New(inst)); err != nil {
		return err
	}

	fmt.Fprintf(w, "module:  %s\n", moduleName(o.module))
	fmt.Fprintf(w, "memory:  %d bytes\n", inst.MemorySize())
	fmt.Fprintln(w, "probes:  ok")
	x := inst.Exports()
	for _, name := range append(x.Required(), x.Game()...) {
		mark := "missing"
		if inst.Has(name) {
			mark = "ok"
		}
		fmt.Fprintf(w, "  %-22s %s\n", name, mark)
	}
	return nil
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode an image atlas without loading a guest",
		ArgsUsage: "[LOCATION]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "png",
				Usage: "write the atlas as a PNG to this path",
			},
			&cli.IntFlag{
				Name:  "row-width",
				Usage: "pixels per PNG row (0 picks a near-square layout)",
			},
			&cli.IntFlag{
				Name:  "scale",
				Value: 1,
				Usage: "PNG upscale factor",
			},
		},
		Action: func(c *cli.Context) error {
			o := optionsFrom(c)
			if c.NArg() > 0 {
				o.asset = c.Args().First()
			}
			if o.asset == "" {
				cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
			}
			return decode(c.Context, o, c.String("png"), c.Int("row-width"), c.Int("scale"), c.App.Writer)
		},
	}
}

func decode(ctx context.Context, o options, pngPath string, rowWidth, scale int, w io.Writer) error {
	framing, err := asset.ParseFraming(o.framing)
	if err != nil {
		return err
	}
	data, err := o.fetcher().Load(ctx, o.asset)
	if err != nil {
		return err
	}
	img, err := asset.Decoder{Framing: framing, MaxPixels: o.maxPixels}.Decode(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "asset:   %s (%s)\n", o.asset, framing)
	fmt.Fprintf(w, "pixels:  %d\n", img.Pixels())
	fmt.Fprintf(w, "bytes:   %d\n", img.Len())
	if pngPath == "" || img.Pixels() == 0 {
		return nil
	}

	if rowWidth == 0 {
		rowWidth = squareWidth(img.Pixels())
	}
	rgba, err := img.NRGBA(rowWidth)
	if err != nil {
		return err
	}
	if err := writePNG(pngPath, rgba, scale); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote:   %s (%dx%d)\n", pngPath, rowWidth*scale, img.Pixels()/rowWidth*scale)
	return nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Render frames headless",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "frames",
				Value: 60,
				Usage: "number of frames to render",
			},
			&cli.UintFlag{
				Name:  "frame-ms",
				Value: 16,
				Usage: "simulated milliseconds between frames",
			},
			&cli.StringFlag{
				Name:  "keys",
				Usage: "comma-separated keys held for every frame, e.g. w,left",
			},
			&cli.StringFlag{
				Name:  "png",
				Usage: "write the last frame as a PNG to this path",
			},
			&cli.IntFlag{
				Name:  "scale",
				Value: 1,
				Usage: "PNG upscale factor",
			},
		},
		Action: func(c *cli.Context) error {
			ctrl, err := parseKeys(c.String("keys"))
			if err != nil {
				return err
			}
			return run(c.Context, optionsFrom(c), c.Int("frames"), uint32(c.Uint("frame-ms")), ctrl,
				c.String("png"), c.Int("scale"), c.App.Writer)
		},
	}
}

func run(ctx context.Context, o options, frames int, frameMillis uint32, ctrl game.Controls, pngPath string, scale int, w io.Writer) error {
	cfg, err := o.launcherConfig()
	if err != nil {
		return err
	}
	app, err := launcher.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if err := app.Run(ctx, frames, 0, frameMillis, ctrl); err != nil {
		return err
	}
	st := app.Session.Stats()
	launcher.Logger().Debug("run finished", zap.Uint64("frames", st.Frames), zap.Float64("fps", st.FPS))

	fmt.Fprintf(w, "frames:  %d\n", st.Frames)
	fmt.Fprintf(w, "fps:     %.1f\n", st.FPS)
	fmt.Fprintf(w, "camera:  %d %d %d\n", st.Deltas[0], st.Deltas[1], st.Deltas[2])

	if pngPath == "" {
		return nil
	}
	img, err := app.Session.SnapshotImage(ctx)
	if err != nil {
		return err
	}
	if err := writePNG(pngPath, img, scale); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote:   %s\n", pngPath)
	return nil
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Play the guest in the terminal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "fps",
				Value: 30,
				Usage: "target frame rate",
			},
		},
		Action: func(c *cli.Context) error {
			return view(c.Context, optionsFrom(c), c.Int("fps"), c.IsSet("width") || c.IsSet("height"))
		},
	}
}

// parseKeys folds comma-separated key names into held controls. Later keys
// in the same group replace earlier ones.
func parseKeys(s string) (game.Controls, error) {
	var ctrl game.Controls
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !ctrl.Press(k) {
			return game.Controls{}, fmt.Errorf("unbound key %q", k)
		}
	}
	return ctrl, nil
}

func moduleName(location string) string {
	if location == "" {
		return "built-in"
	}
	return location
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
