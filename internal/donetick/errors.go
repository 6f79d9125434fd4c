package donetick

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("donetick: client is closed")

// ValidationError reports caller input rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthenticationError reports a failed login or refresh. It is surfaced after
// a single login attempt; the session manager never retries on its own.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NotFoundError reports a chore id absent from upstream data.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chore %d not found", e.ID)
}

// RateLimitedError reports a 429 that survived the whole retry budget.
type RateLimitedError struct {
	Attempts int
	Err      error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by upstream after %d attempts", e.Attempts)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// TransientServerError reports a 5xx (or repeated connection failure) that
// survived the whole retry budget.
type TransientServerError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientServerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d) after %d attempts", e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("upstream unreachable after %d attempts", e.Attempts)
}

func (e *TransientServerError) Unwrap() error { return e.Err }

// ClientRequestError reports a non-retryable 4xx. The summary is sanitized;
// raw upstream bodies only appear in debug logs.
type ClientRequestError struct {
	StatusCode int
	Summary    string
}

func (e *ClientRequestError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("upstream rejected request (status %d): %s", e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("upstream rejected request (status %d)", e.StatusCode)
}

// TimeoutError reports a phase timeout that survived the retry budget.
type TimeoutError struct {
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %d attempts", e.Attempts)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or unparseable upstream response body.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return "malformed upstream response: " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// statusError carries a non-2xx response through the retry loop before it is
// classified into the public taxonomy.
type statusError struct {
	code       int
	summary    string
	retryAfter int // seconds, from Retry-After; 0 when absent
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.code)
}

func (e *statusError) retryable() bool {
	return e.code == 429 || e.code >= 500
}
