package detect

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	// ErrDecode is returned when a service response cannot be parsed
	// into the expected detection shape.
	ErrDecode = errors.New("detect: malformed detection response")
)

// StatusError is a non-2xx response from the detection service.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the service, if any.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("detect: service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("detect: service returned %d", e.StatusCode)
}

// IsBusy returns true if the service's busy gate rejected the frame (HTTP 429).
func (e *StatusError) IsBusy() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnavailable returns true if the detector was not ready (HTTP 503).
func (e *StatusError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
