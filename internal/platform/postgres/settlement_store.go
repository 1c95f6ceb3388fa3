package postgres

import (
	"context"
	"database/sql"

	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/store"
)

// PostgresSettlementStore implements store.SettlementStore: the result
// insert and the completed transition commit or roll back together.
type PostgresSettlementStore struct {
	db *sql.DB
}

// NewPostgresSettlementStore creates a new PostgresSettlementStore.
func NewPostgresSettlementStore(db *sql.DB) *PostgresSettlementStore {
	return &PostgresSettlementStore{db: db}
}

// SettleCompleted writes the result and marks the job completed in one
// transaction.
func (s *PostgresSettlementStore) SettleCompleted(ctx context.Context, result *domain.JobResult) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := NewPostgresResultStore(tx).CreateResult(ctx, result); err != nil {
			return err
		}
		return NewPostgresJobStore(tx).MarkCompleted(ctx, result.JobID)
	})
	if err != nil {
		return store.NewStoreError("job", "settle", "result write and completion must land together", err)
	}
	return nil
}
