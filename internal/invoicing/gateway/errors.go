package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network failures reaching the invoice API.
	ErrTransport = errors.New("gateway: transport failure")
	// ErrStatus wraps non-success responses from a reachable endpoint.
	ErrStatus = errors.New("gateway: unexpected status")
	// ErrDecode wraps malformed response bodies.
	ErrDecode = errors.New("gateway: decode response")
	// ErrNotFound is returned when the API reports 404 for a single resource.
	ErrNotFound = errors.New("gateway: not found")
)

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Operation string
	Code      int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: %s returned %d %s", e.Operation, e.Code, http.StatusText(e.Code))
}

// Unwrap lets callers match ErrStatus, and ErrNotFound for 404s.
func (e *StatusError) Unwrap() []error {
	if e.Code == http.StatusNotFound {
		return []error{ErrStatus, ErrNotFound}
	}
	return []error{ErrStatus}
}
