package session

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a session error
type ErrorKind int

const (
	// KindBindTimeout indicates no bind response arrived in time
	KindBindTimeout ErrorKind = iota
	// KindResponseTimeout indicates no response arrived in time
	KindResponseTimeout
	// KindUnexpectedResponse indicates a response with the wrong code or shape
	KindUnexpectedResponse
	// KindAckMismatch indicates an acknowledgment that does not echo the request
	KindAckMismatch
	// KindRequestInFlight indicates a request was issued while another was outstanding
	KindRequestInFlight
	// KindNoBaseline indicates a partial settings update with no status to fill it
	KindNoBaseline
	// KindTransport indicates the transport failed to send
	KindTransport
	// KindDisconnected indicates the notification stream has ended
	KindDisconnected
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindBindTimeout:
		return "bind timeout"
	case KindResponseTimeout:
		return "response timeout"
	case KindUnexpectedResponse:
		return "unexpected response"
	case KindAckMismatch:
		return "ack mismatch"
	case KindRequestInFlight:
		return "request in flight"
	case KindNoBaseline:
		return "no baseline"
	case KindTransport:
		return "transport error"
	case KindDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by session operations. Errors from the protocol package
// (model errors when decoding a response) are returned wrapped, not converted.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a session error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrBindTimeout        = &Error{Kind: KindBindTimeout}
	ErrResponseTimeout    = &Error{Kind: KindResponseTimeout}
	ErrUnexpectedResponse = &Error{Kind: KindUnexpectedResponse}
	ErrAckMismatch        = &Error{Kind: KindAckMismatch}
	ErrRequestInFlight    = &Error{Kind: KindRequestInFlight}
	ErrNoBaseline         = &Error{Kind: KindNoBaseline}
	ErrTransport          = &Error{Kind: KindTransport}
	ErrDisconnected       = &Error{Kind: KindDisconnected}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func kindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is a bind or response timeout
func IsTimeout(err error) bool {
	kind, ok := kindOf(err)
	return ok && (kind == KindBindTimeout || kind == KindResponseTimeout)
}

// IsRetryable reports whether repeating the same call may succeed without
// reconnecting. The session never retries on its own.
func IsRetryable(err error) bool {
	kind, ok := kindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindBindTimeout, KindResponseTimeout, KindUnexpectedResponse, KindRequestInFlight:
		return true
	}
	return false
}

// IsFatal reports whether err ended the session. The caller must reconnect
// and create a new Session.
func IsFatal(err error) bool {
	kind, ok := kindOf(err)
	return ok && (kind == KindTransport || kind == KindDisconnected)
}
