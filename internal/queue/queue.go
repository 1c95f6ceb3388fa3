package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// Common errors returned by queue implementations.
var (
	// ErrEmpty is returned by Pop when the bounded wait elapses with no
	// entry delivered. Callers are expected to loop.
	ErrEmpty = errors.New("queue is empty")

	// ErrClosed is returned once the queue has been shut down.
	ErrClosed = errors.New("queue is closed")

	// ErrUnavailable is returned when the broker cannot be reached. Intake
	// maps this to a 503 with Retry-After.
	ErrUnavailable = errors.New("queue unavailable")
)

// Queue is the shared priority queue between intake and workers.
type Queue interface {
	// Push enqueues a job handle. The entry becomes visible to consumers
	// immediately.
	Push(ctx context.Context, qj domain.QueueJob) error

	// PushDelayed enqueues a job handle that becomes visible to consumers
	// only after the given delay. Used for retry backoff.
	PushDelayed(ctx context.Context, qj domain.QueueJob, delay time.Duration) error

	// Pop atomically removes and returns the highest-priority entry,
	// blocking up to timeout when the queue is empty. Returns ErrEmpty when
	// the wait elapses.
	Pop(ctx context.Context, timeout time.Duration) (*domain.QueueJob, error)

	// Contains reports whether an entry for the given job is currently on
	// the queue (including delayed entries). Used by the reconciliation
	// sweep to detect orphaned jobs.
	Contains(ctx context.Context, jobID uuid.UUID) (bool, error)

	// Len returns the number of entries currently queued, including delayed
	// entries not yet visible.
	Len(ctx context.Context) (int, error)
}

// score orders queue entries: negative priority so higher priorities sort
// first, plus a fractional time component for FIFO within a band.
func score(priority int, queuedAt time.Time) float64 {
	return float64(-priority) + float64(queuedAt.UnixMilli())/1e15
}
