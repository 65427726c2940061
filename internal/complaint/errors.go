package complaint

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any persistence attempt.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition marks a target status not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPersistence marks a unit of work that failed to commit. Safe to retry.
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicateCheckUnavailable is logged when the duplicate query fails.
	// It never reaches callers of Create.
	ErrDuplicateCheckUnavailable = errors.New("duplicate check unavailable")

	// ErrNotFound marks a missing complaint or notification.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError carries the rejected edge so callers can correct and retry.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// PersistenceError wraps a store failure for the named operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrPersistence and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Retryable is always true: a failed unit of work leaves no partial state.
func (e *PersistenceError) Retryable() bool { return true }

// Timeout reports whether the failure was the caller-supplied deadline expiring.
func (e *PersistenceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// persistErr wraps err as a PersistenceError unless it already carries a
// domain meaning that callers must see unchanged.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrPersistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
