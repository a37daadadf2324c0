package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/errors"
)

type bufferState uint8

const (
	stateLive bufferState = iota
	stateReleased
	stateConsumed
)

// Buffer is a host reference to a guest array. The host releases it exactly
// once, or consumes it when ownership moves to the guest.
//
// Ptr and Len describe the array at creation time. The pointer stays valid
// while the buffer is live but slices derived from it do not; use View.
type Buffer struct {
	bridge *Bridge
	handle uint32
	ptr    uint32
	length uint32
	state  bufferState
}

// Handle returns the guest array handle.
func (buf *Buffer) Handle() uint32 { return buf.handle }

// Ptr returns the data pointer of the array.
func (buf *Buffer) Ptr() uint32 { return buf.ptr }

// Len returns the byte length of the array.
func (buf *Buffer) Len() uint32 { return buf.length }

// Released reports whether the buffer has been released or consumed.
func (buf *Buffer) Released() bool { return buf.state != stateLive }

func (buf *Buffer) check() error {
	switch buf.state {
	case stateReleased:
		return errors.Released(buf.handle)
	case stateConsumed:
		return errors.Consumed(buf.handle)
	}
	return nil
}

// Release frees the array in the guest. The buffer counts as released even if
// the guest call fails, so the array is never freed twice.
func (buf *Buffer) Release(ctx context.Context) error {
	if err := buf.check(); err != nil {
		return err
	}
	buf.state = stateReleased
	if err := buf.bridge.abi.FreeArray(ctx, buf.handle); err != nil {
		return errors.Call(errors.PhaseBridge, "free-array", err)
	}
	Logger().Debug("released guest array", zap.Uint32("handle", buf.handle))
	return nil
}

// Consume transfers ownership to the guest and returns the handle. The host
// must not release the buffer afterwards.
func (buf *Buffer) Consume() (uint32, error) {
	if err := buf.check(); err != nil {
		return 0, err
	}
	buf.state = stateConsumed
	return buf.handle, nil
}

// View passes a scoped view of a live buffer to fn. See Bridge.View.
func (buf *Buffer) View(ctx context.Context, fn func([]byte) error) error {
	if err := buf.check(); err != nil {
		return err
	}
	return buf.bridge.View(ctx, buf.handle, fn)
}

// Bytes copies the buffer contents out of guest memory.
func (buf *Buffer) Bytes(ctx context.Context) ([]byte, error) {
	if err := buf.check(); err != nil {
		return nil, err
	}
	return buf.bridge.ReadBytes(ctx, buf.handle)
}
