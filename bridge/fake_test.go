package bridge

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/wippyai/pixelbridge"
)

// fakeMemory is a growable linear memory. Growing replaces the backing store
// so stale slices diverge from the live memory, as a real engine may.
type fakeMemory struct {
	buf []byte
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *fakeMemory) grow(pages uint32) {
	next := make([]byte, len(m.buf)+int(pages)*pixelbridge.PageSize)
	copy(next, m.buf)
	m.buf = next
}

func (m *fakeMemory) bounds(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return fmt.Errorf("range %d+%d out of bounds", offset, length)
	}
	return nil
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if err := m.bounds(offset, length); err != nil {
		return nil, err
	}
	return m.buf[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if err := m.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.buf[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *fakeMemory) WriteU32(offset, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return m.Write(offset, b[:])
}

// fakeGuest implements the array ABI with a bump allocator. Each array is an
// 8-byte {data, length} header followed by its data.
type fakeGuest struct {
	mem   *fakeMemory
	heap  uint32
	live  map[uint32]bool
	freed []uint32
	// shortBy makes NewArray report a shorter length than requested.
	shortBy uint32
}

func newFakeGuest(pages uint32) *fakeGuest {
	g := &fakeGuest{mem: &fakeMemory{}, heap: 1024, live: map[uint32]bool{}}
	g.mem.grow(pages)
	return g
}

func (g *fakeGuest) Memory() pixelbridge.Memory { return g.mem }

func (g *fakeGuest) NewArray(_ context.Context, length uint32) (uint32, error) {
	header := g.heap
	data := header + 8
	end := data + length
	for end > g.mem.Size() {
		g.mem.grow(1)
	}
	g.heap = (end + 7) &^ 7
	_ = g.mem.WriteU32(header, data)
	_ = g.mem.WriteU32(header+4, length-g.shortBy)
	g.live[header] = true
	return header, nil
}

func (g *fakeGuest) FreeArray(_ context.Context, handle uint32) error {
	if !g.live[handle] {
		return fmt.Errorf("double free of %#x", handle)
	}
	delete(g.live, handle)
	g.freed = append(g.freed, handle)
	return nil
}

func (g *fakeGuest) ArrayData(_ context.Context, handle uint32) (uint32, error) {
	return g.mem.ReadU32(handle)
}

func (g *fakeGuest) ArrayLength(_ context.Context, handle uint32) (uint32, error) {
	return g.mem.ReadU32(handle + 4)
}
