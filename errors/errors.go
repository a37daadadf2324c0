package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig   Phase = "config"   // configuration checks
	PhaseFetch    Phase = "fetch"    // asset and module retrieval
	PhaseLoad     Phase = "load"     // module compilation and instantiation
	PhaseValidate Phase = "validate" // lifecycle probes
	PhaseDecode   Phase = "decode"   // hex and palette/RLE decoding
	PhaseBridge   Phase = "bridge"   // foreign memory operations
	PhaseRuntime  Phase = "runtime"  // guest calls after startup
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHex        Kind = "invalid_hex"
	KindMalformedFrame    Kind = "malformed_frame"
	KindPaletteIndex      Kind = "palette_index_out_of_range"
	KindInvalidData       Kind = "invalid_data"
	KindContractViolation Kind = "contract_violation"
	KindInvalidation      Kind = "memory_invalidation"
	KindReleased          Kind = "released"
	KindConsumed          Kind = "consumed"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindAllocation        Kind = "allocation"
	KindNotFound          Kind = "not_found"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidInput      Kind = "invalid_input"
	KindInstantiation     Kind = "instantiation"
	KindFetch             Kind = "fetch"
	KindCall              Kind = "call"
)

// Sentinels for errors.Is checks against the error taxonomy.
var (
	ErrInvalidHex        = &Error{Phase: PhaseDecode, Kind: KindInvalidHex}
	ErrMalformedFrame    = &Error{Phase: PhaseDecode, Kind: KindMalformedFrame}
	ErrPaletteIndex      = &Error{Phase: PhaseDecode, Kind: KindPaletteIndex}
	ErrContractViolation = &Error{Phase: PhaseValidate, Kind: KindContractViolation}
	ErrInvalidation      = &Error{Phase: PhaseBridge, Kind: KindInvalidation}
	ErrReleased          = &Error{Phase: PhaseBridge, Kind: KindReleased}
	ErrConsumed          = &Error{Phase: PhaseBridge, Kind: KindConsumed}
)

// Error is the structured error type used throughout pixelbridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "/"))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithPath returns a copy of e with prefix prepended to its path.
func (e *Error) WithPath(prefix ...string) *Error {
	cp := *e
	cp.Path = append(append([]string(nil), prefix...), e.Path...)
	return &cp
}

// Convenience constructors for common error patterns

// InvalidHex creates a hex transcoding error at a character offset
func InvalidHex(offset int, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidHex,
		Detail: fmt.Sprintf("offset %d: %s", offset, detail),
		Value:  offset,
	}
}

// MalformedFrame creates a malformed asset frame error at a byte offset
func MalformedFrame(offset int, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedFrame,
		Detail: fmt.Sprintf("offset %d: %s", offset, detail),
		Value:  offset,
	}
}

// PaletteIndex creates a palette index out of range error
func PaletteIndex(index, paletteLen int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindPaletteIndex,
		Detail: fmt.Sprintf("palette index %d out of range (palette has %d entries)", index, paletteLen),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// ContractViolation creates a module contract violation for a failed probe
func ContractViolation(probe, detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindContractViolation,
		Path:   []string{probe},
		Detail: detail,
	}
}

// Invalidation creates a foreign memory invalidation error
func Invalidation(before, after uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindInvalidation,
		Detail: fmt.Sprintf("linear memory resized from %d to %d bytes while a view was held", before, after),
		Cause:  cause,
	}
}

// Released creates an error for a buffer that was already released
func Released(handle uint32) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("buffer %#x already released", handle),
		Value:  handle,
	}
}

// Consumed creates an error for a buffer whose ownership was transferred
func Consumed(handle uint32) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindConsumed,
		Detail: fmt.Sprintf("buffer %#x ownership transferred to guest", handle),
		Value:  handle,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) outside linear memory of %d bytes", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Fetch creates a retrieval error for a location
func Fetch(location string, cause error) *Error {
	return &Error{
		Phase:  PhaseFetch,
		Kind:   KindFetch,
		Path:   []string{location},
		Detail: "fetch failed",
		Cause:  cause,
	}
}

// Call creates an error for a failed guest export call
func Call(phase Phase, export string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCall,
		Path:   []string{export},
		Detail: "guest call failed",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
