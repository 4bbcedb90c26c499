package core

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed or out-of-range input at the boundary.
// It is terminal immediately and never enters the retry path.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an unknown record id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// AuthorizationError marks a missing or invalid credential, or an
// insufficient role.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// UpstreamTimeout marks a remote call that exceeded its bound. It is kept
// distinct from UpstreamHTTPError so callers can apply a different
// retry/backoff policy if they want to.
type UpstreamTimeout struct {
	Operation string
	Err       error
}

func (e *UpstreamTimeout) Error() string {
	return fmt.Sprintf("upstream timeout during %s: %v", e.Operation, e.Err)
}

func (e *UpstreamTimeout) Unwrap() error { return e.Err }

// UpstreamHTTPError marks a non-2xx response from the remote service.
type UpstreamHTTPError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// PersistenceError marks an unavailable or failing store. It is fatal for
// the current request and surfaced as a 500.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
