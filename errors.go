package main

import (
	"fmt"
)

// ConfigurationError is returned when an instance
// can't be resolved into usable settings.
type ConfigurationError struct {
	Message string
}

// Error implements the error
// interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return e.Message
}

// TimeoutError is returned when a request
// to Rumour exceeds the configured timeout.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Request timeout: %s, %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectionError covers any other transport failure:
// refused connections, DNS failures, bad URLs.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UpstreamError is returned when Rumour answers with
// an HTTP status of 400 or above. Message holds the
// error message from the response body when there is
// one, otherwise the HTTP status text.
type UpstreamError struct {
	URL     string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// MalformedResponseError is returned when a
// successful response body is not valid JSON.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("Malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// NoClustersError is returned when Rumour
// doesn't know about any clusters at all.
type NoClustersError struct{}

func (e *NoClustersError) Error() string {
	return "There are no known clusters"
}

// APIError wraps metrics backend errors.
type APIError struct {
	Request string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s]: %s", e.Request, e.Message)
}
