package wasm

import (
	"github.com/wippyai/pixelbridge/wasm/internal/binary"
)

// Emitter appends instructions to a function body. Methods return the
// emitter so sequences read like the text format.
type Emitter struct {
	w *binary.Writer
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{w: binary.NewWriter()}
}

// Bytes returns the encoded instructions.
func (e *Emitter) Bytes() []byte {
	return e.w.Bytes()
}

// Op emits opcodes that take no immediates.
func (e *Emitter) Op(ops ...byte) *Emitter {
	for _, op := range ops {
		e.w.Byte(op)
	}
	return e
}

// I32Const emits i32.const.
func (e *Emitter) I32Const(v int32) *Emitter {
	e.w.Byte(OpI32Const)
	e.w.WriteS32(v)
	return e
}

// F32Const emits f32.const.
func (e *Emitter) F32Const(v float32) *Emitter {
	e.w.Byte(OpF32Const)
	e.w.WriteF32(v)
	return e
}

func (e *Emitter) index(op byte, idx uint32) *Emitter {
	e.w.Byte(op)
	e.w.WriteU32(idx)
	return e
}

// LocalGet emits local.get.
func (e *Emitter) LocalGet(idx uint32) *Emitter { return e.index(OpLocalGet, idx) }

// LocalSet emits local.set.
func (e *Emitter) LocalSet(idx uint32) *Emitter { return e.index(OpLocalSet, idx) }

// LocalTee emits local.tee.
func (e *Emitter) LocalTee(idx uint32) *Emitter { return e.index(OpLocalTee, idx) }

// GlobalGet emits global.get.
func (e *Emitter) GlobalGet(idx uint32) *Emitter { return e.index(OpGlobalGet, idx) }

// GlobalSet emits global.set.
func (e *Emitter) GlobalSet(idx uint32) *Emitter { return e.index(OpGlobalSet, idx) }

// Call emits call.
func (e *Emitter) Call(funcIdx uint32) *Emitter { return e.index(OpCall, funcIdx) }

// Br emits br.
func (e *Emitter) Br(label uint32) *Emitter { return e.index(OpBr, label) }

// BrIf emits br_if.
func (e *Emitter) BrIf(label uint32) *Emitter { return e.index(OpBrIf, label) }

// Block opens a block with the given block type.
func (e *Emitter) Block(bt byte) *Emitter { return e.Op(OpBlock, bt) }

// Loop opens a loop with the given block type.
func (e *Emitter) Loop(bt byte) *Emitter { return e.Op(OpLoop, bt) }

// If opens an if with the given block type.
func (e *Emitter) If(bt byte) *Emitter { return e.Op(OpIf, bt) }

// Else emits else.
func (e *Emitter) Else() *Emitter { return e.Op(OpElse) }

// End closes the innermost block, or the function body.
func (e *Emitter) End() *Emitter { return e.Op(OpEnd) }

// Mem emits a load or store with a natural-alignment hint and offset.
func (e *Emitter) Mem(op byte, offset uint32) *Emitter {
	e.w.Byte(op)
	e.w.WriteU32(naturalAlign(op))
	e.w.WriteU32(offset)
	return e
}

// MemorySize emits memory.size for memory 0.
func (e *Emitter) MemorySize() *Emitter { return e.Op(OpMemorySize, 0x00) }

// MemoryGrow emits memory.grow for memory 0.
func (e *Emitter) MemoryGrow() *Emitter { return e.Op(OpMemoryGrow, 0x00) }

// MemoryCopy emits memory.copy within memory 0.
func (e *Emitter) MemoryCopy() *Emitter {
	e.w.Byte(OpPrefixMisc)
	e.w.WriteU32(MiscMemoryCopy)
	e.w.Byte(0x00)
	e.w.Byte(0x00)
	return e
}

// MemoryFill emits memory.fill on memory 0.
func (e *Emitter) MemoryFill() *Emitter {
	e.w.Byte(OpPrefixMisc)
	e.w.WriteU32(MiscMemoryFill)
	e.w.Byte(0x00)
	return e
}

// naturalAlign returns log2 of the access width.
func naturalAlign(op byte) uint32 {
	switch op {
	case OpI32Load8U, OpI32Store8:
		return 0
	default:
		return 2
	}
}
