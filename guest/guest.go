// Package guest generates the built-in reference guest module.
//
// The guest implements the full export surface the host binds: the array
// ABI, the two lifecycle probes and the game-state entry points. It is a
// bump allocator over linear memory that grows on demand, so any allocation
// may move the backing store the host is viewing.
//
// Arrays use an 8-byte header {data u32, length u32} followed by the data.
// The game state is a 40-byte struct:
//
//	0  width        4  height
//	8  pixels       12 textures (array handles)
//	16 camera x     20 camera y     24 camera z  (i32)
//	28 rotation     32 inclination               (f32)
//
// render_game fills the pixel buffer deterministically from the texture copy
// and the camera; see Expected.
package guest

import (
	"github.com/wippyai/pixelbridge/wasm"
)

// Export names.
const (
	ExportMemory         = "memory"
	ExportConstantProbe  = "test_return_5"
	ExportArrayProbe     = "test_return_arr"
	ExportArrayData      = "get_array_data"
	ExportArrayLength    = "get_array_length"
	ExportNewArray       = "new_uint8_arr"
	ExportFreeArray      = "free_uint8_arr"
	ExportMakeGameState  = "make_game_state"
	ExportPixelData      = "get_pixel_data"
	ExportRenderGame     = "render_game"
	ExportTranslateCam   = "translate_camera"
	ExportRotateCam      = "rotate_camera"
	ExportLiveArrays     = "live_arrays"
	ImportMemoryModule   = "env"
	ImportMemoryName     = "memory"
	DefaultHeapBase      = 1024
	HeaderSize           = 8
	StateSize            = 40
	DefaultMemoryPages   = 1
	defaultConstantProbe = 5
)

// State field offsets.
const (
	offWidth    = 0
	offHeight   = 4
	offPixels   = 8
	offTextures = 12
	offCamX     = 16
	offCamY     = 20
	offCamZ     = 24
	offRot      = 28
	offIncl     = 32
)

// Globals, in declaration order.
const (
	globalHeap uint32 = 0
	globalLive uint32 = 1
)

// probeData is where the array probe content is placed at instantiation.
const probeData = 16

// Options control the generated guest.
type Options struct {
	// ArrayProbe is the content returned by the array probe. It is placed
	// at a fixed low address and must end below HeapBase.
	ArrayProbe []byte
	// ConstantProbe is the value returned by the constant probe.
	ConstantProbe uint32
	// MemoryPages is the initial size of the guest's own memory. Ignored
	// when ImportMemory is set.
	MemoryPages uint32
	// HeapBase is the first address handed out by the allocator.
	HeapBase uint32
	// ImportMemory makes the guest import env.memory instead of exporting
	// its own.
	ImportMemory bool
}

// DefaultOptions returns a guest that satisfies the lifecycle probes.
func DefaultOptions() Options {
	return Options{
		ArrayProbe:    []byte{1, 2, 3, 4, 5},
		ConstantProbe: defaultConstantProbe,
		MemoryPages:   DefaultMemoryPages,
		HeapBase:      DefaultHeapBase,
	}
}

// Default is the encoded guest built with DefaultOptions.
func Default() []byte {
	return Build(DefaultOptions())
}

var (
	i32  = wasm.ValI32
	f32  = wasm.ValF32
	none []wasm.ValType
)

// Build encodes a guest module.
func Build(opts Options) []byte {
	m := &wasm.Module{}
	m.AddGlobal(int32(opts.HeapBase), true) // globalHeap
	m.AddGlobal(0, true)                    // globalLive
	if opts.ImportMemory {
		m.ImportMemory(ImportMemoryModule, ImportMemoryName, wasm.Limits{Min: 1})
	} else {
		m.DeclareMemory(wasm.Limits{Min: opts.MemoryPages})
		m.ExportMemory(ExportMemory)
	}
	m.AddData(probeData, opts.ArrayProbe)

	alloc := m.AddFunc(sig([]wasm.ValType{i32}, i32), allocBody())
	newArr := m.AddFunc(sig([]wasm.ValType{i32}, i32), newArrayBody(alloc))
	m.ExportFunc(ExportNewArray, newArr)

	m.ExportFunc(ExportFreeArray, m.AddFunc(sig([]wasm.ValType{i32}), freeArrayBody()))
	m.ExportFunc(ExportArrayData, m.AddFunc(sig([]wasm.ValType{i32}, i32), loadFieldBody(0)))
	m.ExportFunc(ExportArrayLength, m.AddFunc(sig([]wasm.ValType{i32}, i32), loadFieldBody(4)))
	m.ExportFunc(ExportConstantProbe, m.AddFunc(sig(none, i32), wasm.FuncBody{
		Code: wasm.NewEmitter().I32Const(int32(opts.ConstantProbe)).End().Bytes(),
	}))
	m.ExportFunc(ExportArrayProbe, m.AddFunc(sig(none, i32), arrayProbeBody(newArr, len(opts.ArrayProbe))))
	m.ExportFunc(ExportMakeGameState, m.AddFunc(sig([]wasm.ValType{i32, i32, i32}, i32), makeStateBody(alloc, newArr)))
	m.ExportFunc(ExportPixelData, m.AddFunc(sig([]wasm.ValType{i32}, i32), loadFieldBody(offPixels)))
	m.ExportFunc(ExportRenderGame, m.AddFunc(sig([]wasm.ValType{i32, i32}), renderBody()))
	m.ExportFunc(ExportTranslateCam, m.AddFunc(sig([]wasm.ValType{i32, i32, i32, i32}), translateBody()))
	m.ExportFunc(ExportRotateCam, m.AddFunc(sig([]wasm.ValType{i32, f32, f32}), rotateBody()))
	m.ExportFunc(ExportLiveArrays, m.AddFunc(sig(none, i32), wasm.FuncBody{
		Code: wasm.NewEmitter().GlobalGet(globalLive).End().Bytes(),
	}))

	return m.Encode()
}

func sig(params []wasm.ValType, results ...wasm.ValType) wasm.FuncType {
	return wasm.FuncType{Params: params, Results: results}
}

func locals(n uint32, t wasm.ValType) []wasm.LocalEntry {
	return []wasm.LocalEntry{{Count: n, ValType: t}}
}

// allocBody: alloc(n) -> ptr. Bumps the heap to an 8-byte boundary and grows
// memory by whole pages when the end passes the current size. Traps when
// growth fails.
func allocBody() wasm.FuncBody {
	const n, ptr, end = 0, 1, 2
	e := wasm.NewEmitter()
	e.GlobalGet(globalHeap).LocalSet(ptr)
	e.LocalGet(ptr).LocalGet(n).Op(wasm.OpI32Add).LocalSet(end)

	memBytes := func() { e.MemorySize().I32Const(16).Op(wasm.OpI32Shl) }

	e.LocalGet(end)
	memBytes()
	e.Op(wasm.OpI32GtU).If(wasm.BlockTypeVoid)
	e.LocalGet(end)
	memBytes()
	e.Op(wasm.OpI32Sub).I32Const(0xFFFF).Op(wasm.OpI32Add).I32Const(16).Op(wasm.OpI32ShrU)
	e.MemoryGrow().I32Const(-1).Op(wasm.OpI32Eq).If(wasm.BlockTypeVoid).Op(wasm.OpUnreachable).End()
	e.End()

	e.LocalGet(end).I32Const(7).Op(wasm.OpI32Add).I32Const(-8).Op(wasm.OpI32And).GlobalSet(globalHeap)
	e.LocalGet(ptr).End()
	return wasm.FuncBody{Locals: locals(2, i32), Code: e.Bytes()}
}

// newArrayBody: new_uint8_arr(len) -> handle. Fresh bump memory is already
// zeroed because the allocator never reuses addresses.
func newArrayBody(alloc uint32) wasm.FuncBody {
	const length, h = 0, 1
	e := wasm.NewEmitter()
	e.I32Const(HeaderSize).LocalGet(length).Op(wasm.OpI32Add).Call(alloc).LocalSet(h)
	e.LocalGet(h).LocalGet(h).I32Const(HeaderSize).Op(wasm.OpI32Add).Mem(wasm.OpI32Store, 0)
	e.LocalGet(h).LocalGet(length).Mem(wasm.OpI32Store, 4)
	e.GlobalGet(globalLive).I32Const(1).Op(wasm.OpI32Add).GlobalSet(globalLive)
	e.LocalGet(h).End()
	return wasm.FuncBody{Locals: locals(1, i32), Code: e.Bytes()}
}

// freeArrayBody: free_uint8_arr(h). Only the live counter changes.
func freeArrayBody() wasm.FuncBody {
	e := wasm.NewEmitter()
	e.GlobalGet(globalLive).I32Const(1).Op(wasm.OpI32Sub).GlobalSet(globalLive).End()
	return wasm.FuncBody{Code: e.Bytes()}
}

func loadFieldBody(offset uint32) wasm.FuncBody {
	return wasm.FuncBody{Code: wasm.NewEmitter().LocalGet(0).Mem(wasm.OpI32Load, offset).End().Bytes()}
}

// arrayProbeBody allocates a fresh array of n bytes and copies the probe
// content from its data segment into it.
func arrayProbeBody(newArr uint32, n int) wasm.FuncBody {
	const h = 0
	e := wasm.NewEmitter()
	e.I32Const(int32(n)).Call(newArr).LocalTee(h).Mem(wasm.OpI32Load, 0)
	e.I32Const(probeData).I32Const(int32(n)).MemoryCopy()
	e.LocalGet(h).End()
	return wasm.FuncBody{Locals: locals(1, i32), Code: e.Bytes()}
}

// makeStateBody: make_game_state(width, height, images) -> state. Allocates
// the pixel buffer and copies the image array so the host may free it.
func makeStateBody(alloc, newArr uint32) wasm.FuncBody {
	const width, height, images, s, pix, tex = 0, 1, 2, 3, 4, 5
	e := wasm.NewEmitter()
	e.I32Const(StateSize).Call(alloc).LocalSet(s)
	e.LocalGet(s).LocalGet(width).Mem(wasm.OpI32Store, offWidth)
	e.LocalGet(s).LocalGet(height).Mem(wasm.OpI32Store, offHeight)

	e.LocalGet(width).LocalGet(height).Op(wasm.OpI32Mul).I32Const(2).Op(wasm.OpI32Shl).Call(newArr).LocalSet(pix)
	e.LocalGet(s).LocalGet(pix).Mem(wasm.OpI32Store, offPixels)

	e.LocalGet(images).Mem(wasm.OpI32Load, 4).Call(newArr).LocalSet(tex)
	e.LocalGet(tex).Mem(wasm.OpI32Load, 0).
		LocalGet(images).Mem(wasm.OpI32Load, 0).
		LocalGet(images).Mem(wasm.OpI32Load, 4).
		MemoryCopy()
	e.LocalGet(s).LocalGet(tex).Mem(wasm.OpI32Store, offTextures)

	e.LocalGet(s).End()
	return wasm.FuncBody{Locals: locals(3, i32), Code: e.Bytes()}
}

// renderBody: render_game(state, time).
//
//	off = time + camX + 7*camY + 13*camZ + trunc(100*rot) + 3*trunc(100*incl)
//	pix[i] = tex[(i+off) mod len(tex)], or byte(i+off) without a texture
func renderBody() wasm.FuncBody {
	const s, t, pix, n, i, tex, texLen, off = 0, 1, 2, 3, 4, 5, 6, 7
	e := wasm.NewEmitter()

	e.LocalGet(s).Mem(wasm.OpI32Load, offPixels).Mem(wasm.OpI32Load, 0).LocalSet(pix)
	e.LocalGet(s).Mem(wasm.OpI32Load, offPixels).Mem(wasm.OpI32Load, 4).LocalSet(n)
	e.LocalGet(s).Mem(wasm.OpI32Load, offTextures).Mem(wasm.OpI32Load, 0).LocalSet(tex)
	e.LocalGet(s).Mem(wasm.OpI32Load, offTextures).Mem(wasm.OpI32Load, 4).LocalSet(texLen)

	e.LocalGet(t)
	e.LocalGet(s).Mem(wasm.OpI32Load, offCamX).Op(wasm.OpI32Add)
	e.LocalGet(s).Mem(wasm.OpI32Load, offCamY).I32Const(7).Op(wasm.OpI32Mul, wasm.OpI32Add)
	e.LocalGet(s).Mem(wasm.OpI32Load, offCamZ).I32Const(13).Op(wasm.OpI32Mul, wasm.OpI32Add)
	e.LocalGet(s).Mem(wasm.OpF32Load, offRot).F32Const(100).Op(wasm.OpF32Mul, wasm.OpI32TruncF32S, wasm.OpI32Add)
	e.LocalGet(s).Mem(wasm.OpF32Load, offIncl).F32Const(100).Op(wasm.OpF32Mul, wasm.OpI32TruncF32S)
	e.I32Const(3).Op(wasm.OpI32Mul, wasm.OpI32Add)
	e.LocalSet(off)

	e.I32Const(0).LocalSet(i)
	e.Block(wasm.BlockTypeVoid).Loop(wasm.BlockTypeVoid)
	e.LocalGet(i).LocalGet(n).Op(wasm.OpI32GeU).BrIf(1)
	e.LocalGet(pix).LocalGet(i).Op(wasm.OpI32Add)
	e.LocalGet(texLen).Op(wasm.OpI32Eqz).If(wasm.BlockTypeI32)
	e.LocalGet(i).LocalGet(off).Op(wasm.OpI32Add)
	e.Else()
	e.LocalGet(tex).LocalGet(i).LocalGet(off).Op(wasm.OpI32Add).LocalGet(texLen).Op(wasm.OpI32RemU, wasm.OpI32Add)
	e.Mem(wasm.OpI32Load8U, 0)
	e.End()
	e.Mem(wasm.OpI32Store8, 0)
	e.LocalGet(i).I32Const(1).Op(wasm.OpI32Add).LocalSet(i)
	e.Br(0)
	e.End().End()

	e.End()
	return wasm.FuncBody{Locals: locals(6, i32), Code: e.Bytes()}
}

// translateBody: translate_camera(state, dx, dy, dz).
func translateBody() wasm.FuncBody {
	e := wasm.NewEmitter()
	for axis, off := range []uint32{offCamX, offCamY, offCamZ} {
		e.LocalGet(0).LocalGet(0).Mem(wasm.OpI32Load, off).LocalGet(uint32(axis + 1)).Op(wasm.OpI32Add).Mem(wasm.OpI32Store, off)
	}
	e.End()
	return wasm.FuncBody{Code: e.Bytes()}
}

// rotateBody: rotate_camera(state, dRot, dIncl).
func rotateBody() wasm.FuncBody {
	e := wasm.NewEmitter()
	for k, off := range []uint32{offRot, offIncl} {
		e.LocalGet(0).LocalGet(0).Mem(wasm.OpF32Load, off).LocalGet(uint32(k + 1)).Op(wasm.OpF32Add).Mem(wasm.OpF32Store, off)
	}
	e.End()
	return wasm.FuncBody{Code: e.Bytes()}
}
