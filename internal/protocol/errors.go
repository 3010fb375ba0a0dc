package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a codec or model error
type ErrorKind int

const (
	// KindFrameTooShort indicates a buffer shorter than the smallest valid frame
	KindFrameTooShort ErrorKind = iota
	// KindBadHeader indicates the first two bytes are not FE FE
	KindBadHeader
	// KindLengthMismatch indicates the length byte disagrees with the buffer size
	KindLengthMismatch
	// KindChecksumMismatch indicates the trailing checksum does not match the frame
	KindChecksumMismatch
	// KindPayloadTooLarge indicates an outgoing payload that cannot be framed
	KindPayloadTooLarge
	// KindPayloadTooShort indicates a status payload shorter than the single-zone layout
	KindPayloadTooShort
	// KindUnknownField indicates an override naming a field that cannot be set
	KindUnknownField
	// KindValueOutOfRange indicates an override value outside the field's range
	KindValueOutOfRange
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindFrameTooShort:
		return "frame too short"
	case KindBadHeader:
		return "bad header"
	case KindLengthMismatch:
		return "length mismatch"
	case KindChecksumMismatch:
		return "checksum mismatch"
	case KindPayloadTooLarge:
		return "payload too large"
	case KindPayloadTooShort:
		return "payload too short"
	case KindUnknownField:
		return "unknown field"
	case KindValueOutOfRange:
		return "value out of range"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by every codec and model operation in this package.
// Two errors compare equal under errors.Is when their kinds match, so the
// sentinel values below can be used to test for a category.
type Error struct {
	Kind    ErrorKind // Category of error
	Message string    // Detail (may be empty on sentinels)
	Err     error     // Underlying cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a protocol error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrFrameTooShort    = &Error{Kind: KindFrameTooShort}
	ErrBadHeader        = &Error{Kind: KindBadHeader}
	ErrLengthMismatch   = &Error{Kind: KindLengthMismatch}
	ErrChecksumMismatch = &Error{Kind: KindChecksumMismatch}
	ErrPayloadTooLarge  = &Error{Kind: KindPayloadTooLarge}
	ErrPayloadTooShort  = &Error{Kind: KindPayloadTooShort}
	ErrUnknownField     = &Error{Kind: KindUnknownField}
	ErrValueOutOfRange  = &Error{Kind: KindValueOutOfRange}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a protocol error anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsFramingError reports whether err concerns the framing of a single frame.
// Framing errors are fatal to that frame only, never to the session.
func IsFramingError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindFrameTooShort, KindBadHeader, KindLengthMismatch, KindChecksumMismatch, KindPayloadTooLarge:
		return true
	}
	return false
}

// IsModelError reports whether err comes from payload interpretation or
// caller-supplied overrides
func IsModelError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindPayloadTooShort, KindUnknownField, KindValueOutOfRange:
		return true
	}
	return false
}
