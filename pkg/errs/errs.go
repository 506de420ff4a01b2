// Package errs defines the error taxonomy shared across the engine.
//
// Handlers map these onto HTTP status codes in pkg/httputil. Everything not
// classified here is treated as an internal failure.
package errs

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors for the non-parameterized taxonomy classes.
var (
	// ErrNotFound covers both truly absent resources and resources owned by
	// another organization. The two must be indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is authenticated but the role
	// or object policy denies the operation.
	ErrForbidden = errors.New("not permitted")

	// ErrUnauthenticated is returned when no valid identity could be resolved.
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError reports malformed or invalid input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidation creates a ValidationError for a field.
func NewValidation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransientError wraps a retryable persistence failure (timeout, transaction
// conflict). Reads may be retried once; writes surface it to the caller.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable persistence failure.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"53300", // too_many_connections
			"57014": // query_canceled (statement timeout)
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, optionally matching a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
