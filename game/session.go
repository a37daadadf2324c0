// Package game drives a guest game state from the host: it creates the
// state from a decoded image atlas, feeds camera input, renders frames and
// presents the guest-owned pixel buffer.
package game

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/asset"
	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/engine"
	"github.com/wippyai/pixelbridge/errors"
)

// Guest is the subset of engine.Instance a session drives.
type Guest interface {
	Call(ctx context.Context, name string, args ...uint64) ([]uint64, error)
	CallU32(ctx context.Context, name string, args ...uint64) (uint32, error)
	Require(names ...string) error
	Exports() engine.Exports
}

// Stats summarizes rendering progress.
type Stats struct {
	Frames uint64
	FPS    float64
	Deltas [3]int64
}

// Session owns one guest game state and its presentation surface.
// It is not safe for concurrent use.
type Session struct {
	guest   Guest
	exports engine.Exports
	surface *bridge.Surface
	state   uint32
	width   int
	height  int

	frames    uint64
	lastFrame uint32
	fps       float64
	deltas    [3]int64
}

// NewSession creates the guest state for a width x height viewport from the
// image atlas in images. The guest copies the atlas, so the caller may
// release images once NewSession returns.
func NewSession(ctx context.Context, g Guest, b *bridge.Bridge, width, height int, images *bridge.Buffer) (*Session, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("invalid viewport %dx%d", width, height))
	}
	want := uint64(width) * uint64(height) * asset.BytesPerPixel
	if want > math.MaxUint32 {
		return nil, errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("viewport %dx%d exceeds 32-bit memory", width, height))
	}
	if images == nil || images.Released() {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "image buffer is not live")
	}

	x := g.Exports()
	if err := g.Require(x.Game()...); err != nil {
		return nil, err
	}

	state, err := g.CallU32(ctx, x.MakeGameState,
		api.EncodeU32(uint32(width)), api.EncodeU32(uint32(height)), api.EncodeU32(images.Handle()))
	if err != nil {
		return nil, err
	}
	if state == 0 {
		return nil, errors.AllocationFailed(errors.PhaseRuntime, 0, nil)
	}

	pix, err := g.CallU32(ctx, x.PixelData, api.EncodeU32(state))
	if err != nil {
		return nil, err
	}
	surface, err := bridge.NewSurface(ctx, b, pix)
	if err != nil {
		return nil, err
	}
	if uint64(surface.Len()) != want {
		return nil, errors.InvalidData(errors.PhaseRuntime,
			fmt.Sprintf("pixel buffer has %d bytes, want %d for %dx%d", surface.Len(), want, width, height))
	}

	Logger().Debug("game session created",
		zap.Uint32("state", state),
		zap.Uint32("pixels", pix),
		zap.Int("width", width),
		zap.Int("height", height))

	return &Session{
		guest:   g,
		exports: x,
		surface: surface,
		state:   state,
		width:   width,
		height:  height,
	}, nil
}

// Width returns the viewport width in pixels.
func (s *Session) Width() int { return s.width }

// Height returns the viewport height in pixels.
func (s *Session) Height() int { return s.height }

// State returns the guest game-state handle.
func (s *Session) State() uint32 { return s.state }

// Surface returns the presentation surface.
func (s *Session) Surface() *bridge.Surface { return s.surface }

// Frame applies c to the camera and renders one frame at time now
// (milliseconds).
func (s *Session) Frame(ctx context.Context, now uint32, c Controls) error {
	if s.frames > 0 && now > s.lastFrame {
		s.fps = 1000 / float64(now-s.lastFrame)
	}
	s.lastFrame = now
	for i, d := range c.Translate {
		s.deltas[i] += int64(d)
	}

	state := api.EncodeU32(s.state)
	if _, err := s.guest.Call(ctx, s.exports.TranslateCamera, state,
		api.EncodeI32(c.Translate[0]), api.EncodeI32(c.Translate[1]), api.EncodeI32(c.Translate[2])); err != nil {
		return err
	}
	if _, err := s.guest.Call(ctx, s.exports.RotateCamera, state,
		api.EncodeF32(c.Look[0]), api.EncodeF32(c.Look[1])); err != nil {
		return err
	}
	if _, err := s.guest.Call(ctx, s.exports.RenderGame, state, api.EncodeU32(now)); err != nil {
		return err
	}
	s.frames++
	return nil
}

// Present passes a fresh clamped view of the frame to fn.
func (s *Session) Present(ctx context.Context, fn func(bridge.Clamped) error) error {
	return s.surface.Present(ctx, fn)
}

// Snapshot copies the current frame out of guest memory.
func (s *Session) Snapshot(ctx context.Context) ([]byte, error) {
	return s.surface.Snapshot(ctx)
}

// SnapshotImage copies the current frame into an image.
func (s *Session) SnapshotImage(ctx context.Context) (*image.NRGBA, error) {
	pix, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return (&asset.Image{Pix: pix}).NRGBA(s.width)
}

// Stats returns frame counters and the accumulated camera translation.
func (s *Session) Stats() Stats {
	return Stats{Frames: s.frames, FPS: s.fps, Deltas: s.deltas}
}
