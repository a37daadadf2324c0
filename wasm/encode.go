package wasm

import (
	"github.com/wippyai/pixelbridge/wasm/internal/binary"
)

// vector is one section: its id, its item count and an encoder for item i.
type vector struct {
	item func(w *binary.Writer, i int)
	n    int
	id   byte
}

// Encode encodes the module to WebAssembly binary format. Empty sections are
// omitted.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	imports, memories := 0, 0
	if m.memory != nil {
		if m.memory.imported() {
			imports = 1
		} else {
			memories = 1
		}
	}

	sections := []vector{
		{id: SectionType, n: len(m.types), item: m.encodeType},
		{id: SectionImport, n: imports, item: m.encodeImport},
		{id: SectionFunction, n: len(m.funcs), item: func(w *binary.Writer, i int) { w.WriteU32(m.funcs[i].typeIdx) }},
		{id: SectionMemory, n: memories, item: func(w *binary.Writer, _ int) { writeLimits(w, m.memory.limits) }},
		{id: SectionGlobal, n: len(m.globals), item: m.encodeGlobal},
		{id: SectionExport, n: len(m.exports), item: m.encodeExport},
		{id: SectionCode, n: len(m.funcs), item: m.encodeBody},
		{id: SectionData, n: len(m.data), item: m.encodeData},
	}
	for _, s := range sections {
		if s.n == 0 {
			continue
		}
		sec := binary.NewWriter()
		sec.WriteU32(uint32(s.n))
		for i := 0; i < s.n; i++ {
			s.item(sec, i)
		}
		w.Byte(s.id)
		w.WriteU32(uint32(sec.Len()))
		w.WriteBytes(sec.Bytes())
	}
	return w.Bytes()
}

func (m *Module) encodeType(w *binary.Writer, i int) {
	w.Byte(FuncTypeByte)
	writeValTypes(w, m.types[i].Params)
	writeValTypes(w, m.types[i].Results)
}

// encodeImport writes the memory import, the only import kind generated.
func (m *Module) encodeImport(w *binary.Writer, _ int) {
	w.WriteName(m.memory.module)
	w.WriteName(m.memory.name)
	w.Byte(KindMemory)
	writeLimits(w, m.memory.limits)
}

func (m *Module) encodeGlobal(w *binary.Writer, i int) {
	g := m.globals[i]
	w.Byte(byte(ValI32))
	if g.mutable {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
	w.WriteBytes(constI32(g.init))
}

func (m *Module) encodeExport(w *binary.Writer, i int) {
	x := m.exports[i]
	w.WriteName(x.name)
	w.Byte(x.kind)
	w.WriteU32(x.idx)
}

// encodeBody writes a code entry: its byte size, then locals and code.
func (m *Module) encodeBody(w *binary.Writer, i int) {
	fn := m.funcs[i].body
	body := binary.NewWriter()
	body.WriteU32(uint32(len(fn.Locals)))
	for _, l := range fn.Locals {
		body.WriteU32(l.Count)
		body.Byte(byte(l.ValType))
	}
	body.WriteBytes(fn.Code)
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
}

// encodeData writes an active segment for memory 0 (flags 0).
func (m *Module) encodeData(w *binary.Writer, i int) {
	d := m.data[i]
	w.WriteU32(0)
	w.WriteBytes(constI32(int32(d.offset)))
	w.WriteU32(uint32(len(d.init)))
	w.WriteBytes(d.init)
}

// constI32 is an i32.const initializer expression.
func constI32(v int32) []byte {
	return NewEmitter().I32Const(v).End().Bytes()
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.Max == 0 {
		w.Byte(0)
		w.WriteU32(l.Min)
		return
	}
	w.Byte(LimitsHasMax)
	w.WriteU32(l.Min)
	w.WriteU32(l.Max)
}
