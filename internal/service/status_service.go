package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/store"
)

// StatusService serves the polling contract: cache first, job store as the
// authoritative fallback.
type StatusService interface {
	// GetStatus returns the current status view for a job. Returns
	// ErrJobNotFound when the job is unknown to both cache and store.
	GetStatus(ctx context.Context, jobID uuid.UUID) (*domain.CachedJobStatus, error)
}

type statusService struct {
	cache   cache.StatusCache
	jobs    store.JobStore
	results store.ResultStore
	logger  *slog.Logger
}

// NewStatusService creates the status service.
func NewStatusService(
	statusCache cache.StatusCache,
	jobs store.JobStore,
	results store.ResultStore,
	logger *slog.Logger,
) StatusService {
	return &statusService{
		cache:   statusCache,
		jobs:    jobs,
		results: results,
		logger:  logger,
	}
}

func (s *statusService) GetStatus(ctx context.Context, jobID uuid.UUID) (*domain.CachedJobStatus, error) {
	cached, err := s.cache.Get(ctx, jobID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// Degraded cache is not fatal; fall through to the store.
		s.logger.Warn("status cache read failed, falling back to store", "job_id", jobID, "error", err)
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, &PipelineError{Operation: "get_status", Message: "failed to load job", Err: err}
	}

	var result *domain.JobResult
	if job.Status == domain.JobStatusCompleted {
		result, err = s.results.GetResult(ctx, jobID)
		if err != nil && !errors.Is(err, store.ErrResultNotFound) {
			return nil, &PipelineError{Operation: "get_status", Message: "failed to load result", Err: err}
		}
	}

	status := domain.StatusFromJob(job, result)

	// Re-prime so subsequent polls hit the cache again.
	if err := s.cache.Set(ctx, jobID, status); err != nil {
		s.logger.Debug("failed to re-prime status cache", "job_id", jobID, "error", err)
	}

	return &status, nil
}
