package bridge

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/pixelbridge"
	"github.com/wippyai/pixelbridge/errors"
)

func TestCopyIn(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"small", []byte{1, 2, 3, 4, 5}},
		{"pixels", bytes.Repeat([]byte{0xFF, 0, 0x80, 0xFF}, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGuest(1)
			b := New(g)

			buf, err := b.CopyIn(ctx, tt.data)
			if err != nil {
				t.Fatalf("CopyIn: %v", err)
			}
			if buf.Len() != uint32(len(tt.data)) {
				t.Errorf("Len = %d, want %d", buf.Len(), len(tt.data))
			}
			if buf.Ptr() != buf.Handle()+8 {
				t.Errorf("Ptr = %d, want header+8 = %d", buf.Ptr(), buf.Handle()+8)
			}

			got, err := b.ReadBytes(ctx, buf.Handle())
			if err != nil {
				t.Fatalf("ReadBytes: %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("ReadBytes = %v, want %v", got, tt.data)
			}
		})
	}
}

func TestCopyInGrowsMemory(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	data := bytes.Repeat([]byte{7}, 3*pixelbridge.PageSize)
	buf, err := b.CopyIn(ctx, data)
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if g.mem.Size() < 4*pixelbridge.PageSize {
		t.Fatalf("memory did not grow: %d bytes", g.mem.Size())
	}
	got, err := buf.Bytes(ctx)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("data written before growth was lost")
	}
}

func TestCopyInLengthMismatch(t *testing.T) {
	g := newFakeGuest(1)
	g.shortBy = 1
	b := New(g)

	_, err := b.CopyIn(context.Background(), []byte{1, 2, 3})
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Fatalf("expected invalid data, got %v", err)
	}
	if len(g.live) != 0 {
		t.Errorf("mismatched array not freed: %d live", len(g.live))
	}
}

func TestReleaseExactlyOnce(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	buf, err := b.CopyIn(ctx, []byte{1, 2})
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if buf.Released() {
		t.Fatal("fresh buffer reports released")
	}
	if err := buf.Release(ctx); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if !buf.Released() {
		t.Error("Released() = false after release")
	}

	err = buf.Release(ctx)
	if !stderrors.Is(err, errors.ErrReleased) {
		t.Fatalf("second Release = %v, want released error", err)
	}
	if len(g.freed) != 1 {
		t.Errorf("guest saw %d frees, want 1", len(g.freed))
	}

	if err := buf.View(ctx, func([]byte) error { return nil }); !stderrors.Is(err, errors.ErrReleased) {
		t.Errorf("View after release = %v, want released error", err)
	}
}

func TestConsume(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	buf, err := b.CopyIn(ctx, []byte{9})
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	h, err := buf.Consume()
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if h != buf.Handle() {
		t.Errorf("Consume handle = %#x, want %#x", h, buf.Handle())
	}

	if err := buf.Release(ctx); !stderrors.Is(err, errors.ErrConsumed) {
		t.Fatalf("Release after consume = %v, want consumed error", err)
	}
	if _, err := buf.Consume(); !stderrors.Is(err, errors.ErrConsumed) {
		t.Errorf("second Consume = %v, want consumed error", err)
	}
	if len(g.freed) != 0 {
		t.Errorf("consumed buffer was freed by host")
	}
}

func TestViewZeroCopy(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	buf, err := b.CopyIn(ctx, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	err = b.View(ctx, buf.Handle(), func(data []byte) error {
		data[0] = 42
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	got, _ := b.ReadBytes(ctx, buf.Handle())
	if got[0] != 42 {
		t.Errorf("write through view not visible: %v", got)
	}
}

func TestViewInvalidation(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	buf, err := b.CopyIn(ctx, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}

	inner := stderrors.New("callback failed")
	err = b.View(ctx, buf.Handle(), func([]byte) error {
		if _, err := g.NewArray(ctx, 2*pixelbridge.PageSize); err != nil {
			t.Fatalf("NewArray: %v", err)
		}
		return inner
	})
	if !stderrors.Is(err, errors.ErrInvalidation) {
		t.Fatalf("View = %v, want invalidation", err)
	}
	if !stderrors.Is(err, inner) {
		t.Errorf("invalidation does not wrap callback error: %v", err)
	}

	// A fresh view after growth observes the moved data.
	got, err := b.ReadBytes(ctx, buf.Handle())
	if err != nil {
		t.Fatalf("ReadBytes after growth: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes after growth = %v", got)
	}
}

func TestViewOutOfBounds(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	// Forge a header pointing past the end of memory.
	h := uint32(64)
	_ = g.mem.WriteU32(h, g.mem.Size()-2)
	_ = g.mem.WriteU32(h+4, 16)

	err := b.View(ctx, h, func([]byte) error {
		t.Fatal("callback ran for out of bounds array")
		return nil
	})
	if !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Fatalf("View = %v, want out of bounds", err)
	}

	if err := b.View(ctx, 0, func([]byte) error { return nil }); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("View(0) = %v, want invalid input", err)
	}
}

func TestClampedSet(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-300, 0},
		{-1, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{256, 255},
		{1 << 20, 255},
	}

	c := Clamped{data: make([]byte, 1)}
	for _, tt := range tests {
		c.Set(0, tt.in)
		if got := c.At(0); got != tt.want {
			t.Errorf("Set(%d) stored %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSurface(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	buf, err := b.CopyIn(ctx, make([]byte, 16))
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	s, err := NewSurface(ctx, b, buf.Handle())
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	if s.Len() != 16 {
		t.Errorf("Len = %d, want 16", s.Len())
	}

	err = s.Present(ctx, func(c Clamped) error {
		for i := 0; i < c.Len(); i++ {
			c.Set(i, i*40)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Present: %v", err)
	}

	// Growth between presents must not break the surface.
	if _, err := g.NewArray(ctx, 2*pixelbridge.PageSize); err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for i, v := range snap {
		want := i * 40
		if want > 255 {
			want = 255
		}
		if int(v) != want {
			t.Fatalf("pixel %d = %d, want %d", i, v, want)
		}
	}
}

func TestAdopt(t *testing.T) {
	ctx := context.Background()
	g := newFakeGuest(1)
	b := New(g)

	h, _ := g.NewArray(ctx, 4)
	buf, err := b.Adopt(ctx, h)
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("Len = %d, want 4", buf.Len())
	}
	if err := buf.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(g.live) != 0 {
		t.Errorf("adopted buffer not freed")
	}
}
