// Package errs defines the error taxonomy shared by every stage of the
// query pipeline, from the lexer through the execution engine.
//
// Every error that can reach a caller of the public yachtsql API is a
// *Error carrying a Kind and, where the failure can be attributed to a
// position in the source text, a Span. Internal packages are free to
// wrap a *Error with fmt.Errorf("...: %w", err) the way the rest of the
// codebase wraps errors; errors.As still finds the *Error underneath.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why a statement failed. The set is closed: every
// pipeline stage emits one of these, never a bare string error, so
// callers can switch on Kind without string matching.
type Kind int

const (
	// InternalError marks an invariant violation. It is never expected
	// and is never intentionally recovered from.
	InternalError Kind = iota
	SyntaxError
	ResolutionError
	TypeMismatch
	AmbiguousFunction
	DimensionMismatch
	DivisionByZero
	OutOfRange
	ConstraintViolation
	SerializationFailure
	ResourceExceeded
	FeatureNotSupported
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case ResolutionError:
		return "ResolutionError"
	case TypeMismatch:
		return "TypeMismatch"
	case AmbiguousFunction:
		return "AmbiguousFunction"
	case DimensionMismatch:
		return "DimensionMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case OutOfRange:
		return "OutOfRange"
	case ConstraintViolation:
		return "ConstraintViolation"
	case SerializationFailure:
		return "SerializationFailure"
	case ResourceExceeded:
		return "ResourceExceeded"
	case FeatureNotSupported:
		return "FeatureNotSupported"
	default:
		return "InternalError"
	}
}

// Span is a source-text position, in the units the lexer counts in:
// 1-based line and column, plus the length of the offending token or
// construct.
type Span struct {
	Line   int
	Column int
	Length int
}

// Error is the concrete error type every pipeline stage returns.
type Error struct {
	Kind    Kind
	Message string
	Span    *Span
	Cause   error
}

func (e *Error) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("%s: %s (line %d, column %d)", e.Kind, e.Message, e.Span.Line, e.Span.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a plain *Error with no span.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds a *Error anchored to a source span.
func At(kind Kind, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: &span}
}

// Wrap attaches a Kind and message to an underlying cause, preserving it
// for errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to InternalError if err is
// not (and does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}
