package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// JobStore defines the interface for persisting jobs. The job table is the
// source of truth for job status; the queue and cache are derived views.
type JobStore interface {
	// CreateJob persists a new job in the queued state.
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob retrieves a job by ID. Returns ErrJobNotFound if it does not
	// exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// ClaimJob atomically transitions a queued job to processing, recording
	// started_at. This conditional update is the lease acquisition: it
	// succeeds for exactly one caller. Returns ErrAlreadyClaimed when the
	// job is not in the queued state.
	ClaimJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// ReleaseForRetry transitions a processing job back to queued and
	// increments its retry count. Returns the updated job. Fails with
	// ErrUpdateFailed when the job is not processing.
	ReleaseForRetry(ctx context.Context, jobID uuid.UUID, errMsg string) (*domain.Job, error)

	// MarkCompleted transitions a processing job to completed and records
	// completed_at.
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error

	// MarkFailed transitions a processing job to failed with a terminal
	// error message and records completed_at.
	MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error

	// GetStalled retrieves processing jobs whose started_at is older than
	// the given age. Used by the reaper to recover jobs whose worker died
	// mid-processing.
	GetStalled(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error)

	// GetQueuedOlderThan retrieves queued jobs created before the given
	// grace period. Used by the reconciliation sweep to re-enqueue orphans
	// left behind by a failed queue push.
	GetQueuedOlderThan(ctx context.Context, grace time.Duration) ([]*domain.Job, error)

	// WithTx returns a JobStore bound to the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}

// SettlementStore persists a completed job's result together with its
// terminal transition. The two writes must be atomic: a result without the
// completed status (or the reverse) would leave the job half-settled.
type SettlementStore interface {
	// SettleCompleted writes the result and transitions the job from
	// processing to completed in one transaction.
	SettleCompleted(ctx context.Context, result *domain.JobResult) error
}

// ResultStore defines the interface for persisting job results.
type ResultStore interface {
	// CreateResult writes the result of a completed job. Results are written
	// exactly once; a second write returns ErrResultExists.
	CreateResult(ctx context.Context, result *domain.JobResult) error

	// GetResult retrieves the result for a job. Returns ErrResultNotFound if
	// none has been written.
	GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error)
}

// ErrorLogStore defines the interface for appending per-attempt error logs.
type ErrorLogStore interface {
	// Append records one failed processing attempt.
	Append(ctx context.Context, entry *domain.JobErrorLog) error

	// ListByJob retrieves all error log entries for a job, oldest first.
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.JobErrorLog, error)
}
