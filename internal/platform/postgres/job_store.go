package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/platform/logger"
	"github.com/linguary/linguary-api/internal/store"
)

// jobColumns is the scan list shared by every job query.
const jobColumns = `id, user_id, type, filename, file_size, storage_url,
	status, priority, retry_count, error_message, created_at, started_at, completed_at`

// PostgresJobStore implements store.JobStore using PostgreSQL.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

// WithTx returns a JobStore bound to the provided transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{db: tx}
}

// CreateJob persists a new job in the queued state.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO jobs (id, user_id, type, filename, file_size, storage_url,
			status, priority, retry_count, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.Type,
		job.Filename,
		job.FileSize,
		job.StorageURL,
		job.Status,
		job.Priority,
		job.RetryCount,
		job.Error,
		job.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"job_type", job.Type,
			"error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID.
func (s *PostgresJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ClaimJob transitions a queued job to processing. The WHERE clause on
// status makes this the lease acquisition: the update matches for exactly
// one concurrent caller.
func (s *PostgresJobStore) ClaimJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, started_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query,
		domain.JobStatusProcessing, jobID, domain.JobStatusQueued))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("failed to claim job, not queued or already claimed",
				"job_id", jobID)
			return nil, store.ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return job, nil
}

// ReleaseForRetry takes the retry edge: processing back to queued with the
// retry count incremented. The retry_count guard enforces the cap in the
// same statement.
func (s *PostgresJobStore) ReleaseForRetry(ctx context.Context, jobID uuid.UUID, errMsg string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1, retry_count = retry_count + 1, error_message = $2, started_at = NULL
		WHERE id = $3 AND status = $4 AND retry_count < $5
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query,
		domain.JobStatusQueued, errMsg, jobID, domain.JobStatusProcessing, domain.MaxRetries))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUpdateFailed
		}
		return nil, fmt.Errorf("failed to release job for retry: %w", err)
	}

	return job, nil
}

// MarkCompleted transitions a processing job to completed.
func (s *PostgresJobStore) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	return s.finish(ctx, jobID, domain.JobStatusCompleted, "")
}

// MarkFailed transitions a processing job to failed with its terminal error.
func (s *PostgresJobStore) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	return s.finish(ctx, jobID, domain.JobStatusFailed, errMsg)
}

func (s *PostgresJobStore) finish(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errMsg string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status, errMsg, jobID, domain.JobStatusProcessing)
	if err != nil {
		log.Error("failed to finish job",
			"job_id", jobID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to finish job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrIllegalTransition
	}

	return nil
}

// GetStalled retrieves processing jobs older than the lease duration.
func (s *PostgresJobStore) GetStalled(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at ASC
	`

	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queryJobs(ctx, query, domain.JobStatusProcessing, cutoff)
}

// GetQueuedOlderThan retrieves queued jobs created before the grace period.
func (s *PostgresJobStore) GetQueuedOlderThan(ctx context.Context, grace time.Duration) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`

	cutoff := time.Now().UTC().Add(-grace)
	return s.queryJobs(ctx, query, domain.JobStatusQueued, cutoff)
}

func (s *PostgresJobStore) queryJobs(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs", "error", err)
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Type,
		&job.Filename,
		&job.FileSize,
		&job.StorageURL,
		&job.Status,
		&job.Priority,
		&job.RetryCount,
		&errMsg,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Error = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
