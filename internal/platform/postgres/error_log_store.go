package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/platform/logger"
	"github.com/linguary/linguary-api/internal/store"
)

// PostgresErrorLogStore implements store.ErrorLogStore using PostgreSQL.
type PostgresErrorLogStore struct {
	db store.DBTX
}

// NewPostgresErrorLogStore creates a new PostgresErrorLogStore.
func NewPostgresErrorLogStore(db store.DBTX) *PostgresErrorLogStore {
	return &PostgresErrorLogStore{db: db}
}

// Append records one failed processing attempt.
func (s *PostgresErrorLogStore) Append(ctx context.Context, entry *domain.JobErrorLog) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO job_error_logs (id, job_id, error, stack_trace, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.JobID,
		entry.Error,
		entry.StackTrace,
		entry.RetryCount,
		entry.Timestamp,
	)
	if err != nil {
		log.Error("failed to append job error log",
			"job_id", entry.JobID,
			"error", err)
		return fmt.Errorf("failed to append job error log: %w", err)
	}

	return nil
}

// ListByJob retrieves all error log entries for a job, oldest first.
func (s *PostgresErrorLogStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.JobErrorLog, error) {
	query := `
		SELECT id, job_id, error, stack_trace, retry_count, created_at
		FROM job_error_logs
		WHERE job_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job error logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.JobErrorLog
	for rows.Next() {
		var entry domain.JobErrorLog
		var stackTrace sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.Error,
			&stackTrace,
			&entry.RetryCount,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job error log row: %w", err)
		}

		entry.StackTrace = stackTrace.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job error log rows: %w", err)
	}

	return entries, nil
}
