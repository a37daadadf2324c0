package launcher

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/base16"
	"github.com/wippyai/pixelbridge/errors"
	"github.com/wippyai/pixelbridge/game"
	"github.com/wippyai/pixelbridge/guest"
)

func hexAsset(t *testing.T, records ...*asset.Record) string {
	t.Helper()
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		raw, err := rec.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary: %v", err)
		}
		lines = append(lines, base16.Encode(raw))
	}
	return strings.Join(lines, "\n") + "\n"
}

func testRecords() []*asset.Record {
	return []*asset.Record{
		{
			Palette: asset.Palette{{R: 255, A: 255}, {G: 255, A: 255}},
			Runs:    []asset.Run{{Length: 3, Index: 0}, {Length: 5, Index: 1}},
		},
		{
			Palette: asset.Palette{{B: 200, A: 128}},
			Runs:    []asset.Run{{Length: 300, Index: 0}},
		},
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig(writeFile(t, "images.txt", []byte(hexAsset(t, testRecords()...))))
	cfg.Width, cfg.Height = 4, 2
	cfg.Logger = zap.NewNop()
	return cfg
}

func TestStartBuiltinGuest(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := Start(ctx, cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer app.Close(ctx)

	if got := app.Image.Pixels(); got != 3+5+300 {
		t.Errorf("decoded pixels = %d, want 308", got)
	}

	// The host image buffer was released; pixels and the texture copy remain.
	live, err := app.Instance.CallU32(ctx, guest.ExportLiveArrays)
	if err != nil {
		t.Fatalf("live_arrays: %v", err)
	}
	if live != 2 {
		t.Errorf("live arrays = %d, want 2", live)
	}

	var c game.Controls
	c.Press("a")
	if err := app.Run(ctx, 3, 100, 16, c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := app.Session.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := guest.Expected(app.Image.Pix, 4*4*2, 132, guest.Camera{X: -150})
	if !bytes.Equal(got, want) {
		t.Errorf("frame mismatch\n got %v\nwant %v", got, want)
	}
	if d := app.Session.Stats().Deltas; d != [3]int64{-150, 0, 0} {
		t.Errorf("deltas = %v", d)
	}
}

func TestStartImportedMemoryOverHTTP(t *testing.T) {
	opts := guest.DefaultOptions()
	opts.ImportMemory = true
	module := guest.Build(opts)
	images := []byte(hexAsset(t, testRecords()...))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/m3d.wasm":
			w.Write(module)
		case "/images.txt":
			w.Write(images)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := DefaultConfig(srv.URL + "/images.txt")
	cfg.Module = srv.URL + "/m3d.wasm"
	cfg.Width, cfg.Height = 8, 4

	app, err := Start(ctx, cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer app.Close(ctx)

	if app.Instance.MemorySize() < 50*65536 {
		t.Errorf("memory = %d bytes, want the 50-page env memory", app.Instance.MemorySize())
	}
	if err := app.Run(ctx, 1, 0, 16, game.Controls{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestStartContractViolation(t *testing.T) {
	opts := guest.DefaultOptions()
	opts.ArrayProbe = []byte{5, 4, 3, 2, 1}

	cfg := testConfig(t)
	cfg.Module = writeFile(t, "bad.wasm", guest.Build(opts))

	_, err := Start(context.Background(), cfg)
	if !stderrors.Is(err, errors.ErrContractViolation) {
		t.Fatalf("Start = %v, want contract violation", err)
	}
}

func TestStartMalformedAsset(t *testing.T) {
	tests := []struct {
		kind errors.Kind
		name string
		data string
	}{
		{errors.KindInvalidHex, "bad hex", "00ZZ\n"},
		{errors.KindMalformedFrame, "truncated palette", "0001FF00\n"},
		{errors.KindPaletteIndex, "bad index", "0001FF0000FF0301\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Asset = writeFile(t, "images.txt", []byte(tt.data))
			_, err := Start(context.Background(), cfg)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("Start = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestStartAssetOverMaxPixels(t *testing.T) {
	tests := []struct {
		name      string
		maxPixels int
		wantErr   bool
	}{
		{"capped", 100, true},
		{"exact", 308, false},
		{"unlimited", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.MaxPixels = tt.maxPixels
			app, err := Start(context.Background(), cfg)
			if tt.wantErr {
				if !errors.IsKind(err, errors.KindMalformedFrame) {
					t.Fatalf("Start = %v, want malformed frame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer app.Close(context.Background())
			if app.Image.Pixels() != 308 {
				t.Errorf("Pixels = %d, want 308", app.Image.Pixels())
			}
		})
	}
}

func TestStartFetchFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Module = filepath.Join(t.TempDir(), "missing.wasm")
	if _, err := Start(context.Background(), cfg); !errors.IsKind(err, errors.KindFetch) {
		t.Fatalf("Start = %v, want fetch error", err)
	}

	cfg = testConfig(t)
	cfg.Asset = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := Start(context.Background(), cfg); !errors.IsKind(err, errors.KindFetch) {
		t.Fatalf("Start = %v, want fetch error", err)
	}
}

func TestStartPixelBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Width, cfg.Height = 1, 1
	app, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer app.Close(context.Background())
	if app.Session.Surface().Len() != 4 {
		t.Errorf("surface = %d bytes, want 4", app.Session.Surface().Len())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{func(c *Config) { c.Asset = "" }, "no asset"},
		{func(c *Config) { c.Width = 0 }, "zero width"},
		{func(c *Config) { c.Height = -1 }, "negative height"},
		{func(c *Config) { c.Framing = asset.Framing(9) }, "unknown framing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("images.txt")
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.IsKind(err, errors.KindInvalidInput) {
				t.Fatalf("Validate = %v, want invalid input", err)
			}
			if _, err := Start(context.Background(), cfg); err == nil {
				t.Fatal("Start accepted invalid config")
			}
		})
	}

	if err := DefaultConfig("images.txt").Validate(); err != nil {
		t.Errorf("default config: %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := testConfig(t)
	app, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer app.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx, 10, 0, 16, game.Controls{}); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want canceled", err)
	}
	if app.Session.Stats().Frames != 0 {
		t.Error("frames rendered after cancel")
	}
}
