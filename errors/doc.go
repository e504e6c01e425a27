// Package errors provides structured error types for the platform channel module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: channel name, value path, byte offset and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
//		Path("args", "2").
//		Offset(17).
//		Detail("size prefix exceeds buffer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfRange(offset, 8, len(buf))
//	err := errors.UnknownTag(offset, 99)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when Phase and Kind are equal, so callers
// test categories with a template value:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindCorruptedMessage}) { ... }
package errors
