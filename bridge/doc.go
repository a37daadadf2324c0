// Package bridge moves byte buffers into and out of a guest's linear memory.
//
// The guest owns its memory and exposes a small array ABI: allocate an array of
// n bytes, free it, and resolve an array handle into its data pointer and
// length. Bridge builds three things on top of that ABI:
//
//   - Buffer: an ownership-tracked host reference to a guest array. It is
//     released exactly once, or consumed when ownership moves to the guest.
//   - Scoped views: View and ViewClamped hand a zero-copy slice to a callback.
//     The slice is bound to the backing store current at the time of the call
//     and must not escape the callback, because growing the memory may move it.
//     If the memory size changes while the callback runs the call fails with
//     an invalidation error.
//   - Surface: a long-lived pixel buffer held by handle only, re-resolved on
//     every Present.
//
// Bridge is not safe for concurrent use.
package bridge
