// Package errors provides structured error types for pixelbridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a record path, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindPaletteIndex).
//		Path("record 3", "run 12").
//		Value(7).
//		Detail("palette index %d out of range (palette has %d entries)", 7, 4).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedFrame(offset, "escape run missing extended length")
//	err := errors.ContractViolation("test_return_5", "returned 4")
//
// All errors implement the standard error interface and support errors.Is/As.
// Sentinels such as ErrMalformedFrame match any error of the same phase and kind.
package errors
