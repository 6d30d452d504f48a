package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request
type Kind int

const (
	// KindUnknown is the zero value and never returned by the client
	KindUnknown Kind = iota
	// KindNetwork indicates a transport failure with no response
	KindNetwork
	// KindAuth indicates a 401/403 response
	KindAuth
	// KindValidation indicates a 4xx response carrying a structured message
	KindValidation
	// KindNotFound indicates a 404 response
	KindNotFound
	// KindServer indicates a 5xx response
	KindServer
	// KindDecode indicates a successful response with an unreadable body
	KindDecode
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned for every failed request made through Client.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("api %s %s: network error: %v", e.Method, e.Path, e.Err)
	}
	if e.Kind == KindDecode {
		return fmt.Sprintf("api %s %s: failed to decode response: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error indicates a not found response
func (e *Error) IsNotFound() bool {
	return e.Kind == KindNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *Error) IsUnauthorized() bool {
	return e.Kind == KindAuth
}

// KindOf returns the Kind of err, or KindUnknown when err did not come from Client.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, 0 if none.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsValidation reports whether err is a 4xx validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnauthorized reports whether err is a 401/403.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindAuth
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
