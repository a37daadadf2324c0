package game

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/errors"
	"github.com/wippyai/pixelbridge/guest"
)

func setup(t *testing.T, tex []byte) (*engine.Instance, *bridge.Bridge, *bridge.Buffer) {
	t.Helper()
	ctx := context.Background()
	e, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	inst, err := e.Load(ctx, guest.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := bridge.New(inst)
	images, err := b.CopyIn(ctx, tex)
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	return inst, b, images
}

func atlas(n int) []byte {
	tex := make([]byte, n)
	for i := range tex {
		tex[i] = byte(i*7 + 1)
	}
	return tex
}

func TestSessionFrames(t *testing.T) {
	ctx := context.Background()
	tex := atlas(64)
	inst, b, images := setup(t, tex)

	const width, height = 3, 2
	s, err := NewSession(ctx, inst, b, width, height, images)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := images.Release(ctx); err != nil {
		t.Fatalf("Release images: %v", err)
	}
	if s.Surface().Len() != 4*width*height {
		t.Fatalf("surface length = %d", s.Surface().Len())
	}

	var cam guest.Camera
	steps := []struct {
		keys []string
		now  uint32
	}{
		{nil, 16},
		{[]string{"w"}, 33},
		{[]string{"d", "right"}, 50},
		{[]string{"q", "up"}, 66},
		{[]string{"s"}, 83},
	}
	for _, step := range steps {
		var c Controls
		for _, k := range step.keys {
			c.Press(k)
		}
		cam.X += c.Translate[0]
		cam.Y += c.Translate[1]
		cam.Z += c.Translate[2]
		cam.Rotation += c.Look[0]
		cam.Inclination += c.Look[1]

		if err := s.Frame(ctx, step.now, c); err != nil {
			t.Fatalf("Frame(%d): %v", step.now, err)
		}

		got, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		want := guest.Expected(tex, 4*width*height, step.now, cam)
		if !bytes.Equal(got, want) {
			t.Errorf("frame at %d = %v, want %v", step.now, got, want)
		}
	}

	st := s.Stats()
	if st.Frames != uint64(len(steps)) {
		t.Errorf("Frames = %d, want %d", st.Frames, len(steps))
	}
	if st.Deltas != [3]int64{50, 0, 50} {
		t.Errorf("Deltas = %v, want [50 0 50]", st.Deltas)
	}
	if st.FPS <= 0 {
		t.Errorf("FPS = %v, want positive", st.FPS)
	}
}

func TestSessionPresent(t *testing.T) {
	ctx := context.Background()
	inst, b, images := setup(t, atlas(16))
	s, err := NewSession(ctx, inst, b, 2, 2, images)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Frame(ctx, 1, Controls{}); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	// Growth between frames must not break presentation.
	if _, err := inst.NewArray(ctx, 2*65536); err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	var seen []byte
	err = s.Present(ctx, func(c bridge.Clamped) error {
		seen = make([]byte, c.Len())
		c.CopyTo(seen)
		c.Set(0, 999)
		return nil
	})
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap[0] != 255 {
		t.Errorf("clamped write = %d, want 255", snap[0])
	}
	if !bytes.Equal(seen[1:], snap[1:]) {
		t.Error("Present view and Snapshot disagree")
	}

	img, err := s.SnapshotImage(ctx)
	if err != nil {
		t.Fatalf("SnapshotImage: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Errorf("image bounds = %v", img.Bounds())
	}
}

func TestSessionPresentInvalidation(t *testing.T) {
	ctx := context.Background()
	inst, b, images := setup(t, atlas(16))
	s, err := NewSession(ctx, inst, b, 2, 2, images)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	err = s.Present(ctx, func(bridge.Clamped) error {
		_, err := inst.NewArray(ctx, 2*65536)
		return err
	})
	if !errors.IsKind(err, errors.KindInvalidation) {
		t.Fatalf("Present = %v, want invalidation", err)
	}
}

// shrinkingGuest builds the state one pixel narrower than the session expects.
type shrinkingGuest struct {
	*engine.Instance
}

func (g shrinkingGuest) CallU32(ctx context.Context, name string, args ...uint64) (uint32, error) {
	if name == g.Exports().MakeGameState {
		args[0] = api.EncodeU32(api.DecodeU32(args[0]) - 1)
	}
	return g.Instance.CallU32(ctx, name, args...)
}

func TestNewSessionValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("bad viewport", func(t *testing.T) {
		inst, b, images := setup(t, atlas(4))
		if _, err := NewSession(ctx, inst, b, 0, 2, images); !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("NewSession = %v, want invalid input", err)
		}
	})

	t.Run("released images", func(t *testing.T) {
		inst, b, images := setup(t, atlas(4))
		_ = images.Release(ctx)
		if _, err := NewSession(ctx, inst, b, 2, 2, images); !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("NewSession = %v, want invalid input", err)
		}
	})

	t.Run("pixel length mismatch", func(t *testing.T) {
		inst, b, images := setup(t, atlas(4))
		_, err := NewSession(ctx, shrinkingGuest{inst}, b, 3, 2, images)
		if !errors.IsKind(err, errors.KindInvalidData) {
			t.Errorf("NewSession = %v, want invalid data", err)
		}
	})

	t.Run("missing game exports", func(t *testing.T) {
		ctx := context.Background()
		e, err := engine.New(ctx, &engine.Config{
			MemoryPages: 1,
			Exports:     engine.Exports{RenderGame: "draw_frame"},
		})
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		defer e.Close(ctx)
		inst, err := e.Load(ctx, guest.Default())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		b := bridge.New(inst)
		images, err := b.CopyIn(ctx, atlas(4))
		if err != nil {
			t.Fatalf("CopyIn: %v", err)
		}
		if _, err := NewSession(ctx, inst, b, 1, 1, images); !errors.IsKind(err, errors.KindNotFound) {
			t.Errorf("NewSession = %v, want not found", err)
		}
	})
}
