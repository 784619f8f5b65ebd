package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the social client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoAccessToken    = errors.New("no access token")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrRefreshFailed    = errors.New("token refresh failed")

	// Transport errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrEmptyResponse  = errors.New("empty response envelope")
	ErrInvalidRequest = errors.New("invalid request")

	// Identity errors
	ErrInvalidIDToken = errors.New("invalid id token")

	// Realtime errors
	ErrConnectionFailed = errors.New("realtime connection failed")
	ErrConnectionClosed = errors.New("realtime connection closed")

	// Friendship errors
	ErrInvalidTransition = errors.New("invalid friendship transition")

	// General errors
	ErrNotFound = errors.New("not found")
)

// APIError is returned for any non-2xx response from the REST backend.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the sentinel errors so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalidRequest
	}
	return nil
}

// IsAuthExpired reports whether err is an authorization-expired outcome.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
