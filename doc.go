// Package pixelbridge decodes palette/RLE image assets and moves pixel
// buffers across the boundary into a WebAssembly guest's linear memory.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pixelbridge/         Root package with the Memory interface
//	├── base16/          Uppercase hex text <-> bytes
//	├── asset/           Palette + run-length record decoding, framing
//	├── bridge/          Buffers and scoped views inside foreign memory
//	├── guard/           Startup capability probes against the guest
//	├── engine/          wazero integration and the guest export surface
//	├── wasm/            Minimal core WASM binary encoder
//	├── guest/           Built-in reference guest module
//	├── game/            Pass-through state, per-frame calls, input controls
//	├── fetch/           Single-attempt file/HTTP retrieval
//	├── launcher/        Startup sequence tying everything together
//	└── errors/          Structured error types
//
// # Quick Start
//
//	app, err := launcher.Start(ctx, &launcher.Config{
//	    Module:  "m3d_wasm.wasm",
//	    Asset:   "images.txt",
//	    Framing: asset.FramingHex,
//	    Width:   320,
//	    Height:  160,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Close(ctx)
//
//	err = app.Session.Frame(ctx, 0, game.Controls{})
//	err = app.Session.Present(ctx, func(v bridge.Clamped) error {
//	    draw(v.Bytes())
//	    return nil
//	})
//
// # Memory Model
//
// WASM linear memory can only grow, and growing may move the backing store.
// Any slice obtained from guest memory is therefore scoped to a single bridge
// call: views are handed to a callback and must not escape it. Long-lived
// buffers such as the per-frame pixel surface are held by handle and
// re-resolved every time they are presented.
//
// # Thread Safety
//
// Everything that touches guest memory is single threaded. Engine may be shared,
// but Instance, Bridge and Session must be used by one goroutine.
package pixelbridge
