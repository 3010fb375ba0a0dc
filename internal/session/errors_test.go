package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err       error
		timeout   bool
		retryable bool
		fatal     bool
	}{
		{err: ErrBindTimeout, timeout: true, retryable: true},
		{err: ErrResponseTimeout, timeout: true, retryable: true},
		{err: ErrUnexpectedResponse, retryable: true},
		{err: ErrRequestInFlight, retryable: true},
		{err: ErrAckMismatch},
		{err: ErrNoBaseline},
		{err: ErrTransport, fatal: true},
		{err: fmt.Errorf("poll: %w", ErrDisconnected), fatal: true},
		{err: errors.New("other")},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.timeout {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.timeout)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	cause := errors.New("broken pipe")
	err := &Error{Kind: KindTransport, Message: "send query", Err: cause}

	if got, want := err.Error(), "transport error: send query: broken pipe"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) || !errors.Is(err, ErrTransport) {
		t.Error("errors.Is should match both the kind and the cause")
	}
	if got := newError(KindNoBaseline, "").Error(); got != "no baseline" {
		t.Errorf("Error() = %q, want \"no baseline\"", got)
	}
}
