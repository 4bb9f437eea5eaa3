package client

import (
	"errors"
	"fmt"

	"github.com/imathwy/tbps/internal/server"
)

// ConnectionError means no response was received: refused connection, DNS
// failure, timeout or cancellation.
type ConnectionError struct {
	Method string
	URL    string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// HealthCheckError is a non-2xx answer from a GET endpoint (/health, /mock-info).
type HealthCheckError struct {
	Path       string
	StatusCode int
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// SearchError is a non-2xx answer from /find-similar-theorems. Message holds
// the backend's detail when it sent one.
type SearchError struct {
	StatusCode int
	Message    string
}

func (e *SearchError) Error() string {
	return e.Message
}

// DeserializationError is a 2xx answer whose body does not match the contract.
type DeserializationError struct {
	Path string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Path, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

type UnsupportedOperationError struct {
	Operation string
	Selector  server.Selector
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s only available for mock server (selected: %s)", e.Operation, e.Selector)
}

// Message turns any client error into the text shown to a user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Message
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return fmt.Sprintf("Connection failed: %v", connErr.Err)
	}

	return err.Error()
}
