// Package guard checks that a freshly instantiated guest honors the host
// contract before any other use.
//
// Two probes run in order. The constant probe must return ExpectedConstant.
// The array probe must return an array handle that resolves, through the
// bridge, to exactly ExpectedArray. Any failure is a contract violation and
// the module must not be used.
package guard

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/errors"
)

// Probe names used in error paths.
const (
	ProbeConstant = "constant-probe"
	ProbeArray    = "array-probe"
)

// ExpectedConstant is the value the constant probe must return.
const ExpectedConstant = 5

// ExpectedArray is the content the array probe must return.
var ExpectedArray = []byte{1, 2, 3, 4, 5}

// Prober calls the guest's lifecycle probes.
type Prober interface {
	ConstantProbe(ctx context.Context) (uint32, error)
	ArrayProbe(ctx context.Context) (uint32, error)
}

// Validate runs both probes. The array returned by the array probe is
// released afterwards.
func Validate(ctx context.Context, p Prober, b *bridge.Bridge) error {
	v, err := p.ConstantProbe(ctx)
	if err != nil {
		return violation(ProbeConstant, "probe call failed", err)
	}
	if v != ExpectedConstant {
		return violation(ProbeConstant, fmt.Sprintf("returned %d, want %d", v, ExpectedConstant), nil)
	}

	h, err := p.ArrayProbe(ctx)
	if err != nil {
		return violation(ProbeArray, "probe call failed", err)
	}
	buf, err := b.Adopt(ctx, h)
	if err != nil {
		return violation(ProbeArray, "result does not resolve", err)
	}
	got, err := buf.Bytes(ctx)
	if rerr := buf.Release(ctx); rerr != nil {
		Logger().Warn("release probe array failed", zap.Uint32("handle", h), zap.Error(rerr))
	}
	if err != nil {
		return violation(ProbeArray, "result does not resolve", err)
	}
	if !bytes.Equal(got, ExpectedArray) {
		return violation(ProbeArray, fmt.Sprintf("returned %v, want %v", got, ExpectedArray), nil)
	}

	Logger().Debug("guest passed lifecycle probes")
	return nil
}

// Check is the boolean form of Validate.
func Check(ctx context.Context, p Prober, b *bridge.Bridge) bool {
	return Validate(ctx, p, b) == nil
}

func violation(probe, detail string, cause error) error {
	err := errors.ContractViolation(probe, detail)
	err.Cause = cause
	Logger().Warn("guest contract violation",
		zap.String("probe", probe),
		zap.String("detail", detail),
		zap.Error(cause))
	return err
}
