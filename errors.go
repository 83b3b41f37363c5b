package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrCredential indicates the identity provider call failed or returned
	// an unusable payload.
	ErrCredential = errors.New("credential error")

	// ErrUpstream indicates the generation endpoint failed or returned a
	// non-success status.
	ErrUpstream = errors.New("upstream error")

	// ErrParse indicates the generation call succeeded at the transport
	// level but the expected text field was absent or malformed.
	ErrParse = errors.New("parse error")

	// ErrTurnInFlight indicates a turn was submitted while another turn of
	// the same session was still running.
	ErrTurnInFlight = errors.New("turn already in flight")

	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")
)

// Error is a classified failure returned by a TokenSource or Generator.
// Kind is one of ErrCredential, ErrUpstream or ErrParse, so callers can
// classify with errors.Is.
type Error struct {
	Kind   error
	Status int    // HTTP status code, 0 when no response was received
	Body   string // raw response body, kept for diagnostics
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the presentation name of err's classification:
// "credential_error", "upstream_error", "parse_error", "validation_error"
// for a request rejected before it was sent, or "" when err is not
// classified.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrCredential):
		return "credential_error"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return ""
	}
}
