package pixelbridge

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536

// Memory represents a foreign linear memory.
//
// Slices returned by Read alias the current backing store. They are only valid
// until the memory is next resized, which any guest call may do.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	MemorySizer
}

// MemorySizer provides the current size of the linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}
