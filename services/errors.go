package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an invoice id does not exist.
var ErrNotFound = errors.New("invoice not found")

// ValidationError reports a rejected upload or a missing/invalid request field.
// It maps to a 4xx response and never leaves side effects behind.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a transactional write failure after rollback.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
