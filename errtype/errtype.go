// Package errtype defines the error taxonomy shared by every layer of the
// storage core: page file, block, structure, virtual buffer and schema.
//
// Every sentinel here is a marker error under github.com/cockroachdb/errors.
// Call sites build a contextual message with errors.Newf/errors.Wrapf and
// attach one of these markers with errors.Mark so that callers can test the
// *kind* of failure with errors.Is without depending on exact wording.
package errtype

import "github.com/cockroachdb/errors"

// Kind markers. These are never returned directly; they are attached to a
// concrete error with errors.Mark so the message stays descriptive while the
// kind stays machine-checkable.
var (
	// ErrProgramming marks a violated precondition: double-set of a value
	// that may only be set once, an empty description, a construction-order
	// bug. These are supposed to be unreachable in correct code.
	ErrProgramming = errors.New("programming error")

	// ErrValidation marks malformed text input: unknown flags, invalid
	// numeric ranges, name collisions.
	ErrValidation = errors.New("validation error")

	// ErrTypeMismatch marks a field accessor used against the wrong type,
	// or a typed value that does not match the expected struct_type_t.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingData marks a required parameter that is absent, or a
	// reference (column id, page offset, field name) that does not resolve.
	ErrMissingData = errors.New("missing data")

	// ErrIO marks a failure opening, reading, mapping or writing the
	// backing file.
	ErrIO = errors.New("i/o error")

	// ErrSize marks a virtual buffer read or write that would run past the
	// end of the buffer without growth being permitted.
	ErrSize = errors.New("size error")

	// ErrNotImplemented marks a feature explicitly called out as a TODO in
	// the design: complex-type columns, compiled scripts.
	ErrNotImplemented = errors.New("not yet implemented")
)

// Programming builds an error from format+args and marks it as a
// programming error.
func Programming(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrProgramming)
}

// Validation marks a validation error.
func Validation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// TypeMismatch marks a type-mismatch error.
func TypeMismatch(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTypeMismatch)
}

// MissingData marks a missing-data error.
func MissingData(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMissingData)
}

// IO wraps an underlying I/O error, preserving its cause while attaching the
// ErrIO marker.
func IO(cause error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrIO)
}

// Size marks a size error.
func Size(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSize)
}

// NotImplemented marks a not-yet-implemented error.
func NotImplemented(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotImplemented)
}

// Is reports whether err carries the given kind marker.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
