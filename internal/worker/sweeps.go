package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/store"
)

// SweeperConfig holds configuration for the background sweeps.
type SweeperConfig struct {
	// Interval is how often both sweeps run.
	Interval time.Duration

	// ProcessingTimeout is the age at which a processing job counts as
	// stalled. It must match the pool's processing timeout so a live worker
	// has given up before the reaper touches its job.
	ProcessingTimeout time.Duration

	// OrphanGrace is how long a queued job may stay off the queue before the
	// reconciler re-enqueues it. It must comfortably exceed the maximum retry
	// backoff so delayed entries are not mistaken for orphans.
	OrphanGrace time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with the pipeline's design
// values.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:          time.Minute,
		ProcessingTimeout: time.Hour,
		OrphanGrace:       2 * time.Minute,
	}
}

// Sweeper runs the two recovery sweeps on a schedule: the reaper, which
// requeues or fails jobs whose worker died mid-processing, and the
// reconciler, which re-enqueues queued jobs missing from the queue.
type Sweeper struct {
	queue  queue.Queue
	jobs   store.JobStore
	logs   store.ErrorLogStore
	cache  cache.StatusCache
	config SweeperConfig
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper creates a sweeper. Call Start to begin the schedule.
func NewSweeper(
	q queue.Queue,
	jobs store.JobStore,
	logs store.ErrorLogStore,
	statusCache cache.StatusCache,
	config SweeperConfig,
	logger *slog.Logger,
) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = time.Hour
	}
	if config.OrphanGrace <= 0 {
		config.OrphanGrace = 2 * time.Minute
	}

	return &Sweeper{
		queue:  q,
		jobs:   jobs,
		logs:   logs,
		cache:  statusCache,
		config: config,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules both sweeps and begins running them.
func (s *Sweeper) Start() error {
	schedule := fmt.Sprintf("@every %s", s.config.Interval)

	if _, err := s.cron.AddFunc(schedule, func() {
		s.ReapStalled(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.ReconcileOrphans(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}

	s.cron.Start()
	s.logger.Info("sweeps scheduled",
		"interval", s.config.Interval,
		"processing_timeout", s.config.ProcessingTimeout,
		"orphan_grace", s.config.OrphanGrace)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sweeps stopped")
}

// ReapStalled recovers processing jobs whose lease has expired. Each one is
// released back to the queue if it has retries left, otherwise failed.
func (s *Sweeper) ReapStalled(ctx context.Context) {
	stalled, err := s.jobs.GetStalled(ctx, s.config.ProcessingTimeout)
	if err != nil {
		s.logger.Error("reaper failed to list stalled jobs", "error", err)
		return
	}

	for _, job := range stalled {
		log := s.logger.With("job_id", job.ID, "retry_count", job.RetryCount)
		errMsg := fmt.Sprintf("processing timed out after %s", s.config.ProcessingTimeout)

		if entry, logErr := domain.NewJobErrorLog(job.ID, errMsg, "", job.RetryCount); logErr == nil {
			if appendErr := s.logs.Append(ctx, entry); appendErr != nil {
				log.Error("reaper failed to append error log", "error", appendErr)
			}
		}

		if !job.CanRetry() {
			if err := s.jobs.MarkFailed(ctx, job.ID, errMsg); err != nil {
				log.Error("reaper failed to fail stalled job", "error", err)
				continue
			}
			job.Status = domain.JobStatusFailed
			job.Error = errMsg
			s.mirror(ctx, job, log)
			log.Warn("reaped stalled job, retries exhausted")
			continue
		}

		updated, err := s.jobs.ReleaseForRetry(ctx, job.ID, errMsg)
		if err != nil {
			// Raced with the worker settling the job; nothing to recover.
			log.Debug("reaper skipping job no longer stalled", "error", err)
			continue
		}

		s.mirror(ctx, updated, log)

		if err := s.queue.Push(ctx, domain.NewQueueJob(updated)); err != nil {
			// Row is queued but off the queue; the reconciler picks it up.
			log.Error("reaper failed to requeue job, leaving for reconciler", "error", err)
			continue
		}

		log.Info("reaped stalled job back onto queue", "retry_count", updated.RetryCount)
	}
}

// ReconcileOrphans re-enqueues queued jobs that have no entry on the queue.
// These are left behind when a queue push fails after the job row commits.
func (s *Sweeper) ReconcileOrphans(ctx context.Context) {
	orphaned, err := s.jobs.GetQueuedOlderThan(ctx, s.config.OrphanGrace)
	if err != nil {
		s.logger.Error("reconciler failed to list queued jobs", "error", err)
		return
	}

	for _, job := range orphaned {
		log := s.logger.With("job_id", job.ID)

		present, err := s.queue.Contains(ctx, job.ID)
		if err != nil {
			log.Error("reconciler failed to check queue membership", "error", err)
			continue
		}
		if present {
			continue
		}

		// A duplicate push here is harmless: the worker claim is
		// conditional, so the extra delivery gets dropped.
		if err := s.queue.Push(ctx, domain.NewQueueJob(job)); err != nil {
			log.Error("reconciler failed to re-enqueue orphan", "error", err)
			continue
		}

		log.Info("re-enqueued orphaned job", "age", time.Since(job.CreatedAt))
	}
}

func (s *Sweeper) mirror(ctx context.Context, job *domain.Job, log *slog.Logger) {
	if err := s.cache.Set(ctx, job.ID, domain.StatusFromJob(job, nil)); err != nil {
		log.Debug("failed to mirror status to cache", "error", err)
	}
}
