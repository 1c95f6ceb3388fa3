// Package service holds the application services between the HTTP handlers
// and the pipeline internals: intake, which accepts an upload and turns it
// into a queued job, and status, which serves the polling contract.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected conditions. The API layer maps these to HTTP
// status codes with errors.Is; anything else is an internal error.
var (
	// ErrEmptyFile indicates the upload carried no file bytes. Maps to 400.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrFileTooLarge indicates the upload exceeds the size limit. Maps to
	// 413.
	ErrFileTooLarge = errors.New("uploaded file exceeds the size limit")

	// ErrStorageUnavailable indicates the blob store rejected the upload
	// after the bounded retries. Maps to 503 with Retry-After.
	ErrStorageUnavailable = errors.New("file storage unavailable")

	// ErrStoreUnavailable indicates the job record could not be persisted.
	// Maps to 503 with Retry-After.
	ErrStoreUnavailable = errors.New("job store unavailable")

	// ErrQueueUnavailable indicates the queue push failed after the job row
	// was committed. The job is not lost: the reconciliation sweep
	// re-enqueues it. Maps to 503 with a shorter Retry-After.
	ErrQueueUnavailable = errors.New("job queue unavailable")

	// ErrJobNotFound indicates no job exists for the polled task ID. Maps
	// to 404.
	ErrJobNotFound = errors.New("job not found")
)

// PipelineError wraps unexpected errors from a service operation with
// context for logging. Sentinel errors above pass through unwrapped.
type PipelineError struct {
	// Operation is the operation that failed (e.g. "enqueue_upload").
	Operation string
	// Message is a human-readable description of the failure.
	Message string
	// Err is the underlying error.
	Err error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap supports errors.Is/errors.As on the wrapped error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}
