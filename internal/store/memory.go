package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// MemoryJobStore is an in-memory JobStore with the same conditional-update
// semantics as the Postgres implementation. It backs the pipeline tests and
// single-process development.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	// FailCreates makes CreateJob fail while positive, to exercise the
	// intake DependencyUnavailable path.
	FailCreates int
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

// CreateJob persists a new job.
func (s *MemoryJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreates > 0 {
		s.FailCreates--
		return ErrTransactionFailed
	}

	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicate
	}

	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

// GetJob retrieves a job by ID.
func (s *MemoryJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	clone := *job
	return &clone, nil
}

// ClaimJob transitions queued -> processing for exactly one caller.
func (s *MemoryJobStore) ClaimJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusQueued {
		return nil, ErrAlreadyClaimed
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusProcessing
	job.StartedAt = &now

	clone := *job
	return &clone, nil
}

// ReleaseForRetry takes the retry edge, enforcing the retry cap.
func (s *MemoryJobStore) ReleaseForRetry(ctx context.Context, jobID uuid.UUID, errMsg string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing || job.RetryCount >= domain.MaxRetries {
		return nil, ErrUpdateFailed
	}

	job.Status = domain.JobStatusQueued
	job.RetryCount++
	job.Error = errMsg
	job.StartedAt = nil

	clone := *job
	return &clone, nil
}

// MarkCompleted transitions processing -> completed.
func (s *MemoryJobStore) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	return s.finish(jobID, domain.JobStatusCompleted, "")
}

// MarkFailed transitions processing -> failed.
func (s *MemoryJobStore) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	return s.finish(jobID, domain.JobStatusFailed, errMsg)
}

func (s *MemoryJobStore) finish(jobID uuid.UUID, status domain.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return ErrIllegalTransition
	}

	now := time.Now().UTC()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	return nil
}

// GetStalled retrieves processing jobs started before the cutoff.
func (s *MemoryJobStore) GetStalled(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusProcessing && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, nil
}

// GetQueuedOlderThan retrieves queued jobs created before the grace cutoff.
func (s *MemoryJobStore) GetQueuedOlderThan(ctx context.Context, grace time.Duration) ([]*domain.Job, error) {
	cutoff := time.Now().UTC().Add(-grace)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusQueued && job.CreatedAt.Before(cutoff) {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, nil
}

// WithTx returns the store itself; the memory store has no transactions.
func (s *MemoryJobStore) WithTx(tx *sql.Tx) JobStore {
	return s
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// MemoryResultStore is an in-memory ResultStore.
type MemoryResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]*domain.JobResult
}

// NewMemoryResultStore creates an empty in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[uuid.UUID]*domain.JobResult)}
}

// CreateResult writes a result exactly once.
func (s *MemoryResultStore) CreateResult(ctx context.Context, result *domain.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.JobID]; exists {
		return ErrResultExists
	}

	clone := *result
	s.results[result.JobID] = &clone
	return nil
}

// GetResult retrieves a job's result.
func (s *MemoryResultStore) GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[jobID]
	if !ok {
		return nil, ErrResultNotFound
	}

	clone := *result
	return &clone, nil
}

// MemorySettlementStore is an in-memory SettlementStore over the memory job
// and result stores, undoing the result write when the transition fails.
type MemorySettlementStore struct {
	jobs    *MemoryJobStore
	results *MemoryResultStore
}

// NewMemorySettlementStore creates a settlement store over the given stores.
func NewMemorySettlementStore(jobs *MemoryJobStore, results *MemoryResultStore) *MemorySettlementStore {
	return &MemorySettlementStore{jobs: jobs, results: results}
}

// SettleCompleted writes the result and marks the job completed.
func (s *MemorySettlementStore) SettleCompleted(ctx context.Context, result *domain.JobResult) error {
	if err := s.results.CreateResult(ctx, result); err != nil {
		return err
	}
	if err := s.jobs.MarkCompleted(ctx, result.JobID); err != nil {
		s.results.delete(result.JobID)
		return err
	}
	return nil
}

func (s *MemoryResultStore) delete(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, jobID)
}

// MemoryErrorLogStore is an in-memory ErrorLogStore.
type MemoryErrorLogStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]*domain.JobErrorLog
}

// NewMemoryErrorLogStore creates an empty in-memory error log store.
func NewMemoryErrorLogStore() *MemoryErrorLogStore {
	return &MemoryErrorLogStore{entries: make(map[uuid.UUID][]*domain.JobErrorLog)}
}

// Append records one failed attempt.
func (s *MemoryErrorLogStore) Append(ctx context.Context, entry *domain.JobErrorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *entry
	s.entries[entry.JobID] = append(s.entries[entry.JobID], &clone)
	return nil
}

// ListByJob retrieves the entries for a job, oldest first.
func (s *MemoryErrorLogStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.JobErrorLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries[jobID]
	out := make([]*domain.JobErrorLog, len(entries))
	for i, e := range entries {
		clone := *e
		out[i] = &clone
	}
	return out, nil
}
