// Package api provides an HTTP client for the file manager server API
// with cookie-based sessions and error classification.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrServerError  = errors.New("api: server error")
	ErrUnexpected   = errors.New("api: unexpected status")

	// ErrNetwork marks failures where no HTTP response was received.
	ErrNetwork = errors.New("api: network failure")
)

// APIError wraps a sentinel error with the HTTP status code and the server's
// error message. The server reports failures as {"error": "..."}; when the
// body is not in that shape the raw body is kept instead.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: HTTP %d", e.StatusCode)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err carries a 401 from the server.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusOK && code < http.StatusMultipleChoices {
			return nil
		}

		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpected
	}
}
