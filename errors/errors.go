package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild     Phase = "build"     // module builder bookkeeping
	PhaseDecode    Phase = "decode"    // binary to module description
	PhaseValidate  Phase = "validate"  // structural validation
	PhaseCompile   Phase = "compile"   // engine compilation
	PhaseLink      Phase = "link"      // import resolution
	PhaseConstruct Phase = "construct" // Function/Table/Global/Memory constructors
	PhaseCall      Phase = "call"      // function invocation
	PhaseCoerce    Phase = "coerce"    // JS value <-> wasm value
	PhaseAssert    Phase = "assert"    // descriptor assertions
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error. Kinds map onto JS error classes via Class.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindType       Kind = "type_error"
	KindLink       Kind = "link_error"
	KindRange      Kind = "range_error"
	KindRuntime    Kind = "runtime_error"
	KindSyntax     Kind = "syntax_error"
	KindAssertion  Kind = "assertion_failed"
	KindInvalid    Kind = "invalid_input"
)

// JS error class names reported by Class and ClassOf.
const (
	ClassError        = "Error"
	ClassCompileError = "CompileError"
	ClassLinkError    = "LinkError"
	ClassRuntimeError = "RuntimeError"
	ClassTypeError    = "TypeError"
	ClassRangeError   = "RangeError"
	ClassSyntaxError  = "SyntaxError"
)

// Error is the structured error type used throughout the module
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
		b.WriteString(strings.Join(e.Path, "."))
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

// Class returns the JS error class this error is thrown as.
func (e *Error) Class() string {
	switch e.Kind {
	case KindValidation:
		return ClassCompileError
	case KindType:
		return ClassTypeError
	case KindLink:
		return ClassLinkError
	case KindRange:
		return ClassRangeError
	case KindRuntime:
		return ClassRuntimeError
	case KindSyntax:
		return ClassSyntaxError
	default:
		return ClassError
	}
}

// ClassOf returns the JS error class of err. Only the outermost structured
// error decides: a TypeError caused by a RangeError is still a TypeError.
// Errors not produced by this module report ClassError.
func ClassOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Class()
	}
	return ClassError
}

// IsClass reports whether err is thrown as the given JS error class.
func IsClass(err error, class string) bool {
	return err != nil && ClassOf(err) == class
}

// Is forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library so callers need a single errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
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

// Path sets the field path
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

// Convenience constructors for common error patterns

// Validation creates a validation error, thrown as CompileError
func Validation(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindValidation,
		Path:   path,
		Detail: detail,
	}
}

// TypeError creates a TypeError with a formatted detail
func TypeError(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindType,
		Detail: fmt.Sprintf(format, args...),
	}
}

// RangeError creates a RangeError with a formatted detail
func RangeError(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRange,
		Detail: fmt.Sprintf(format, args...),
	}
}

// LinkError creates a link error for the import at path (module, field)
func LinkError(path []string, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindLink,
		Path:   path,
		Detail: fmt.Sprintf(format, args...),
	}
}

// RuntimeError wraps an engine trap
func RuntimeError(cause error, detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindRuntime,
		Detail: detail,
		Cause:  cause,
	}
}

// SyntaxError creates a SyntaxError, used for malformed BigInt strings
func SyntaxError(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSyntax,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Mismatch creates an assertion failure comparing an expected and actual value
func Mismatch(path []string, expected, actual any) *Error {
	return &Error{
		Phase:  PhaseAssert,
		Kind:   KindAssertion,
		Path:   path,
		Detail: fmt.Sprintf("expected %v, got %v", expected, actual),
		Value:  actual,
	}
}

// Assertion creates an assertion failure with a formatted detail
func Assertion(path []string, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseAssert,
		Kind:   KindAssertion,
		Path:   path,
		Detail: fmt.Sprintf(format, args...),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalid,
		Detail: detail,
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
