package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g. a second result for the same job).
	ErrDuplicate = errors.New("entity already exists")

	// ErrUpdateFailed is returned when an update matches no rows, for example
	// because the entity does not exist or a status precondition failed.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrResultNotFound indicates that no result has been stored for the job.
	ErrResultNotFound = fmt.Errorf("%w: job result", ErrNotFound)

	// ErrAlreadyClaimed indicates the conditional claim update matched no
	// rows: the job was already claimed by another worker, or is not in the
	// queued state.
	ErrAlreadyClaimed = fmt.Errorf("%w: job already claimed", ErrUpdateFailed)

	// ErrResultExists indicates a result was already written for the job.
	// Results are written exactly once, on the terminal completed transition.
	ErrResultExists = fmt.Errorf("%w: job result", ErrDuplicate)

	// ErrIllegalTransition indicates a status update that violates the
	// monotonic transition rules.
	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", ErrUpdateFailed)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with
// additional context.
type StoreError struct {
	Entity    string // The entity type (e.g. "job", "job_result")
	Operation string // The operation that failed (e.g. "create", "claim")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation,
// message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
