// Package engine runs guest modules on wazero and binds their export surface.
//
// # Architecture
//
//	Engine   - owns a wazero runtime and the optional env memory provider
//	Instance - a running guest with its linear memory and resolved exports
//	Memory   - bounds-checked access to a guest's linear memory
//
// # Instantiation Flow
//
//  1. Engine.Load compiles the guest binary
//  2. If the guest imports env.memory, the engine instantiates a provider
//     module named "env" exporting a memory of Config.MemoryPages pages
//  3. The guest is instantiated and its memory cached
//  4. The array ABI and probe exports are resolved; a missing one fails the
//     load with a not-found error
//
// Game exports are resolved lazily; use Instance.Require to check them.
//
// Instance implements bridge.ABI and guard.Prober. It is not safe for
// concurrent use.
package engine
