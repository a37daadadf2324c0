package bridge

import (
	"context"
)

// Surface is a presentation buffer owned by the guest. It holds only the
// handle, so every Present re-acquires a view over the current backing store.
type Surface struct {
	bridge *Bridge
	handle uint32
	length uint32
}

// NewSurface resolves handle once to learn its length.
func NewSurface(ctx context.Context, b *Bridge, handle uint32) (*Surface, error) {
	mem, err := b.memory()
	if err != nil {
		return nil, err
	}
	r, err := b.resolve(ctx, mem, handle)
	if err != nil {
		return nil, err
	}
	return &Surface{bridge: b, handle: handle, length: r.length}, nil
}

// Handle returns the guest array handle.
func (s *Surface) Handle() uint32 { return s.handle }

// Len returns the length observed when the surface was created.
func (s *Surface) Len() uint32 { return s.length }

// Present passes a fresh clamped view of the pixels to fn.
func (s *Surface) Present(ctx context.Context, fn func(Clamped) error) error {
	return s.bridge.ViewClamped(ctx, s.handle, fn)
}

// Snapshot copies the current pixels out of guest memory.
func (s *Surface) Snapshot(ctx context.Context) ([]byte, error) {
	return s.bridge.ReadBytes(ctx, s.handle)
}
