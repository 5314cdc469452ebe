package upload

import (
	"errors"
	"fmt"
)

// ErrInFlight is returned by Begin while a submission is outstanding. Attempts are not queued.
var ErrInFlight = errors.New("a submission is already in progress")

// ValidationError is a refused submission; nothing was sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a 401 from the backend; the session has to be re-established.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "session expired"
	}
	return "session expired: " + e.Message
}

// ServerError is any other non-2xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}
