package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the booking service answers with a non-2xx
// status. Error() returns the response body unchanged so conflict messages
// reach the user as the service wrote them.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("booking service returned status %d", e.StatusCode)
}

// TransportError is returned when the booking service could not be reached
// or its response could not be read.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return "booking service unreachable"
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
