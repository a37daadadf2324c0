package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/pixelbridge"
	"github.com/wippyai/pixelbridge/errors"
)

// Memory wraps wazero memory to implement pixelbridge.Memory.
//
// Slices returned by Read alias the current backing store. They are invalid
// once the memory grows.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps a wazero memory.
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, offset, length, m.Size())
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if ok := m.mem.Write(offset, data); !ok {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, uint32(len(data)), m.Size())
	}
	return nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 4, m.Size())
	}
	return val, nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if ok := m.mem.WriteUint32Le(offset, value); !ok {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 4, m.Size())
	}
	return nil
}

func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Pages returns the current size in 64KiB pages.
func (m *Memory) Pages() uint32 {
	return m.Size() / pixelbridge.PageSize
}

// Grow grows the memory by delta pages from the host side and returns the
// previous page count.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	prev, ok := m.mem.Grow(delta)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, delta*pixelbridge.PageSize, nil)
	}
	return prev, nil
}

var _ pixelbridge.Memory = (*Memory)(nil)
