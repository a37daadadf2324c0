package wasm

// Module is a core module under construction. The zero value is an empty
// module. Functions, globals and data are numbered in the order they are
// added, and a module holds at most one memory, either imported or
// declared.
type Module struct {
	memory  *memory
	types   []FuncType
	funcs   []function
	globals []global
	exports []export
	data    []segment
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Limits bounds a memory in pages. A Max of 0 leaves it unbounded.
type Limits struct {
	Min uint32
	Max uint32
}

// FuncBody is a function's local declarations and its instructions,
// including the final end.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

type memory struct {
	limits Limits
	// module and name are set for an imported memory.
	module, name string
}

func (m *memory) imported() bool { return m.module != "" }

type function struct {
	body    FuncBody
	typeIdx uint32
}

type global struct {
	init    int32
	mutable bool
}

type export struct {
	name string
	kind byte
	idx  uint32
}

// segment is an active data segment for memory 0.
type segment struct {
	init   []byte
	offset uint32
}

// ImportMemory makes memory 0 an import of module.name. It replaces any
// memory set before.
func (m *Module) ImportMemory(module, name string, l Limits) {
	m.memory = &memory{limits: l, module: module, name: name}
}

// DeclareMemory makes memory 0 owned by the module. It replaces any memory
// set before.
func (m *Module) DeclareMemory(l Limits) {
	m.memory = &memory{limits: l}
}

// ExportMemory exports memory 0 under name.
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, export{name: name, kind: KindMemory})
}

// AddType appends ft unless an identical type exists and returns its index.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.types {
		if sameValTypes(t.Params, ft.Params) && sameValTypes(t.Results, ft.Results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// Types returns the deduplicated function types.
func (m *Module) Types() []FuncType { return m.types }

// AddFunc declares a function with the given type and body and returns its
// function index.
func (m *Module) AddFunc(ft FuncType, body FuncBody) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.AddType(ft), body: body})
	return uint32(len(m.funcs) - 1)
}

// ExportFunc exports function idx under name.
func (m *Module) ExportFunc(name string, idx uint32) {
	m.exports = append(m.exports, export{name: name, kind: KindFunc, idx: idx})
}

// AddGlobal declares an i32 global initialized to init and returns its
// index.
func (m *Module) AddGlobal(init int32, mutable bool) uint32 {
	m.globals = append(m.globals, global{init: init, mutable: mutable})
	return uint32(len(m.globals) - 1)
}

// AddData places init at offset in memory 0 when the module is
// instantiated.
func (m *Module) AddData(offset uint32, init []byte) {
	m.data = append(m.data, segment{offset: offset, init: init})
}

func sameValTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
