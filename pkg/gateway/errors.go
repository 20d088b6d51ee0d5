package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks an operation the selected back-end does not implement.
	// It is a hard failure: orchestrators return it instead of counting it as a
	// failed channel.
	ErrUnsupported = errors.New("operation not implemented by backend")
	// ErrMalformed is returned when a response reports success but lacks the
	// fields the operation needs.
	ErrMalformed = errors.New("malformed response")
	// ErrEmptyCatalog is returned when the provider probe yields no models.
	ErrEmptyCatalog = errors.New("provider returned no models")
	// ErrListChannels wraps the page fetch failure that aborts a batch run.
	ErrListChannels = errors.New("list channels failed")
)

// HTTPError is a non-200 answer from the gateway.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// APIError is a 200 answer whose envelope carries success=false.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, msg)
}

type UnsupportedError struct {
	Backend string
	Op      string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s not implemented", e.Backend, e.Op)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

type AuthError struct {
	Method string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Method, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsUnsupported reports whether err came from a back-end stub.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
