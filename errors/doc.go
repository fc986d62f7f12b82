// Package errors provides structured error types for the wasm-jsapi harness.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Each Kind is thrown as a JS error class: validation errors are
// CompileErrors, link errors LinkErrors, traps RuntimeErrors, and so on.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLink, errors.KindLink).
//		Path("m", "fun").
//		Detail("signature mismatch").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeError(errors.PhaseCoerce, "cannot convert %s to BigInt", "number")
//	err := errors.Validation(errors.PhaseValidate, path, "type index out of range")
//
// Errors thrown by user callables are never wrapped; ClassOf reports them as
// plain "Error".
package errors
