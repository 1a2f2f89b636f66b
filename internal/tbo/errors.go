package tbo

import (
	"errors"
	"fmt"
)

// ErrUpstreamAuth is returned when the supplier rejects our credentials or
// the cached token has been invalidated server-side.
var ErrUpstreamAuth = errors.New("tbo: upstream authentication failed")

// ValidationError reports a request that was rejected before any upstream
// call was made (missing origin, bad date, passenger list problems).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "tbo: invalid request: " + e.Reason
}

// TransportError wraps network failures and non-2xx HTTP responses from the
// supplier. The wrapped error is reachable with errors.Unwrap.
type TransportError struct {
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tbo: upstream returned HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tbo: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError is a structured rejection from the supplier itself, carried
// in the response envelope rather than the HTTP status.
type BusinessError struct {
	Code    int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("tbo: supplier error %d: %s", e.Code, e.Message)
}

// FareMismatchError is returned during booking when the re-quoted fare has
// no breakdown entry for a passenger type we were asked to book.
type FareMismatchError struct {
	PaxType int
}

func (e *FareMismatchError) Error() string {
	return fmt.Sprintf("tbo: quoted fare has no breakdown for passenger type %d", e.PaxType)
}
