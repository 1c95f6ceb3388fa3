package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/platform/logger"
	"github.com/linguary/linguary-api/internal/store"
)

// PostgresResultStore implements store.ResultStore using PostgreSQL.
type PostgresResultStore struct {
	db store.DBTX
}

// NewPostgresResultStore creates a new PostgresResultStore.
func NewPostgresResultStore(db store.DBTX) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// CreateResult writes a job's result. The primary key on job_id makes the
// write-once contract a constraint rather than a convention.
func (s *PostgresResultStore) CreateResult(ctx context.Context, result *domain.JobResult) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO job_results (job_id, result, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.db.ExecContext(ctx, query,
		result.JobID,
		[]byte(result.Result),
		result.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrResultExists
		}
		log.Error("failed to create job result",
			"job_id", result.JobID,
			"error", err)
		return fmt.Errorf("failed to create job result: %w", err)
	}

	return nil
}

// GetResult retrieves the result for a job.
func (s *PostgresResultStore) GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	query := `
		SELECT job_id, result, created_at
		FROM job_results
		WHERE job_id = $1
	`

	var result domain.JobResult
	var body []byte

	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&result.JobID,
		&body,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}

	result.Result = body
	return &result, nil
}
