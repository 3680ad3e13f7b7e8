// Package errs defines the error kinds surfaced by the extraction pipeline.
//
// Failures about the data itself (image shape and dimensionality, per-region
// value counts, region geometry) and about the external extractor wrap an
// *Error carrying one of the kinds below, so callers can branch with errors.Is
// against the sentinels or unpack the operation name with errors.As. Invalid
// option values, I/O errors and the package sentinels of synthesis are
// returned as plain errors.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// InputShape marks empty images, wrong dimensionality or mismatched shapes.
	InputShape Kind = iota + 1
	// ValueCountMismatch marks a per-region value array whose length differs from
	// the number of regions.
	ValueCountMismatch
	// DegenerateGeometry marks zero-volume regions or non-positive throat lengths.
	DegenerateGeometry
	// Integration marks a missing, unsupported or failing external executable.
	Integration
	// Parse marks malformed or missing external output files.
	Parse
)

func (k Kind) String() string {
	switch k {
	case InputShape:
		return "input shape"
	case ValueCountMismatch:
		return "value count mismatch"
	case DegenerateGeometry:
		return "degenerate geometry"
	case Integration:
		return "integration"
	case Parse:
		return "parse"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrInputShape         = &Error{Kind: InputShape}
	ErrValueCountMismatch = &Error{Kind: ValueCountMismatch}
	ErrDegenerateGeometry = &Error{Kind: DegenerateGeometry}
	ErrIntegration        = &Error{Kind: Integration}
	ErrParse              = &Error{Kind: Parse}
)

// Error is a classified failure of a named operation.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "distance.Transform".
	Op string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target with an
// empty Op and no cause matches any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" && t.Err == nil || t == e
}

// New builds an *Error with a formatted cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
