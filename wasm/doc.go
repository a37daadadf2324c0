// Package wasm encodes WebAssembly core modules.
//
// It covers the MVP sections needed to generate small guests in-process:
// types, imports, functions, memories, globals, exports, code and data.
// Function bodies are built with an Emitter:
//
//	e := wasm.NewEmitter()
//	e.LocalGet(0).I32Const(1).Op(wasm.OpI32Add).End()
//	body := wasm.FuncBody{Code: e.Bytes()}
//
// Nothing here validates a module. Compile the encoded bytes with a runtime
// to check them.
package wasm
