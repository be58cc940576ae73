package backend

import (
	"errors"
	"fmt"
)

// TransportError wraps network-level failures (timeout, unreachable host).
// Callers keep their last-good data and may retry manually.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the backend. 4xx errors are final
// (the backend rejected the request, e.g. an illegal transition); 5xx
// errors are retryable but are never retried automatically because the
// backend's mutations are not idempotent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Retryable() bool { return e.StatusCode >= 500 }

// MalformedPayloadError reports a response body whose shape matched none of
// the known envelope layouts. Coercing such a body to an empty order list
// would silently wipe a live board, so it is always surfaced.
type MalformedPayloadError struct {
	Detail string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed backend payload: %s", e.Detail)
}

// IsRetryable reports whether err is worth a manual retry.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}
