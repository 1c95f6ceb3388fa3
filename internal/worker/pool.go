package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/store"
)

// Config holds configuration for the worker pool.
type Config struct {
	// Count determines how many concurrent workers consume the queue.
	Count int

	// PopTimeout bounds the blocking pop on an empty queue.
	PopTimeout time.Duration

	// ProcessingTimeout is the lease duration for one processing attempt.
	ProcessingTimeout time.Duration

	// RetryDelays holds the backoff before each retry, indexed by the retry
	// count at failure time.
	RetryDelays []time.Duration
}

// DefaultConfig returns a Config with the pipeline's design values.
func DefaultConfig() Config {
	return Config{
		Count:             4,
		PopTimeout:        5 * time.Second,
		ProcessingTimeout: time.Hour,
		RetryDelays:       []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// Pool consumes the priority queue with N parallel workers.
type Pool struct {
	queue     queue.Queue
	jobs      store.JobStore
	settle    store.SettlementStore
	errorLogs store.ErrorLogStore
	cache     cache.StatusCache
	registry  *Registry
	config    Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool. The registry must carry a processor for
// every job type the intake API accepts.
func NewPool(
	q queue.Queue,
	jobs store.JobStore,
	settle store.SettlementStore,
	errorLogs store.ErrorLogStore,
	statusCache cache.StatusCache,
	registry *Registry,
	config Config,
	logger *slog.Logger,
) *Pool {
	if config.Count <= 0 {
		config.Count = 1
	}
	if config.PopTimeout <= 0 {
		config.PopTimeout = 5 * time.Second
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = time.Hour
	}
	if len(config.RetryDelays) == 0 {
		config.RetryDelays = DefaultConfig().RetryDelays
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		queue:     q,
		jobs:      jobs,
		settle:    settle,
		errorLogs: errorLogs,
		cache:     statusCache,
		registry:  registry,
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "worker_count", p.config.Count)

	for i := 0; i < p.config.Count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker is the per-goroutine loop: blocking-pop, process, repeat.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("starting worker")

	for {
		select {
		case <-p.ctx.Done():
			log.Debug("stopping worker")
			return
		default:
		}

		qj, err := p.queue.Pop(p.ctx, p.config.PopTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
				log.Debug("stopping worker")
				return
			}
			log.Error("failed to pop queue", "error", err)
			continue
		}

		p.processOne(qj, log)
	}
}

// processOne runs one delivery end to end: claim, execute, settle.
func (p *Pool) processOne(qj *domain.QueueJob, log *slog.Logger) {
	ctx := context.Background()
	log = log.With("job_id", qj.JobID, "job_type", qj.Type)

	// The conditional claim is the lease: exactly one worker passes this
	// point per delivery. Duplicate deliveries (e.g. a reconciler false
	// positive) fail here and are dropped.
	job, err := p.jobs.ClaimJob(ctx, qj.JobID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyClaimed) {
			log.Debug("dropping delivery, job not claimable")
			return
		}
		log.Error("failed to claim job", "error", err)
		return
	}

	log.Info("processing job", "retry_count", job.RetryCount, "priority", job.Priority)
	p.mirrorStatus(ctx, job, nil, log)

	fn, ok := p.registry.Get(job.Type)
	if !ok {
		// Retrying cannot fix a missing processor; fail outright.
		p.failTerminally(ctx, job, fmt.Errorf("no processor registered for job type %q", job.Type), "", log)
		return
	}

	result, procErr := p.execute(fn, job)

	if procErr != nil {
		p.settleFailure(ctx, job, procErr, log)
		return
	}

	p.settleSuccess(ctx, job, result, log)
}

// execute invokes the registered processor under the processing timeout,
// converting panics into ordinary processing errors so a bad callback
// cannot take the worker down.
func (p *Pool) execute(fn ProcessFunc, job *domain.Job) (result []byte, err error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.ProcessingTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	report := func(progress int) {
		if progress < 0 || progress > 100 {
			return
		}
		if cacheErr := p.cache.SetProgress(ctx, job.ID, progress); cacheErr != nil {
			p.logger.Debug("failed to mirror progress", "job_id", job.ID, "error", cacheErr)
		}
	}

	return fn(ctx, job, report)
}

// settleSuccess writes the result, completes the job and mirrors the
// terminal status.
func (p *Pool) settleSuccess(ctx context.Context, job *domain.Job, body []byte, log *slog.Logger) {
	result, err := domain.NewJobResult(job.ID, body)
	if err != nil {
		// An empty result is a processor bug; surface it as a failure so
		// the job still terminates observably.
		p.settleFailure(ctx, job, fmt.Errorf("processor returned invalid result: %w", err), log)
		return
	}

	if err := p.settle.SettleCompleted(ctx, result); err != nil {
		log.Error("failed to settle completed job", "error", err)
		p.settleFailure(ctx, job, fmt.Errorf("failed to persist result: %w", err), log)
		return
	}

	job.Status = domain.JobStatusCompleted
	now := time.Now().UTC()
	job.CompletedAt = &now
	p.mirrorStatus(ctx, job, result, log)

	log.Info("job completed")
}

// settleFailure logs the attempt and either requeues with backoff or marks
// the job terminally failed.
func (p *Pool) settleFailure(ctx context.Context, job *domain.Job, procErr error, log *slog.Logger) {
	log.Error("job processing failed", "error", procErr, "retry_count", job.RetryCount)

	var stack string
	var pErr *panicError
	if errors.As(procErr, &pErr) {
		stack = string(pErr.stack)
	}

	if !job.CanRetry() {
		p.failTerminally(ctx, job, procErr, stack, log)
		return
	}

	p.appendErrorLog(ctx, job, procErr, stack, log)
	delay := p.retryDelay(job.RetryCount)

	updated, err := p.jobs.ReleaseForRetry(ctx, job.ID, procErr.Error())
	if err != nil {
		log.Error("failed to release job for retry", "error", err)
		return
	}

	p.mirrorStatus(ctx, updated, nil, log)

	if err := p.queue.PushDelayed(ctx, domain.NewQueueJob(updated), delay); err != nil {
		// The job row is queued but absent from the queue; the
		// reconciliation sweep picks it up.
		log.Error("failed to requeue job, leaving for reconciler", "error", err)
		return
	}

	log.Info("job requeued for retry",
		"retry_count", updated.RetryCount,
		"backoff", delay)
}

// failTerminally records the final attempt and moves the job to failed.
func (p *Pool) failTerminally(ctx context.Context, job *domain.Job, procErr error, stack string, log *slog.Logger) {
	p.appendErrorLog(ctx, job, procErr, stack, log)

	if err := p.jobs.MarkFailed(ctx, job.ID, procErr.Error()); err != nil {
		log.Error("failed to mark job failed", "error", err)
		return
	}

	job.Status = domain.JobStatusFailed
	job.Error = procErr.Error()
	now := time.Now().UTC()
	job.CompletedAt = &now
	p.mirrorStatus(ctx, job, nil, log)

	log.Warn("job failed terminally", "retry_count", job.RetryCount)
}

func (p *Pool) appendErrorLog(ctx context.Context, job *domain.Job, procErr error, stack string, log *slog.Logger) {
	entry, err := domain.NewJobErrorLog(job.ID, procErr.Error(), stack, job.RetryCount)
	if err != nil {
		return
	}
	if appendErr := p.errorLogs.Append(ctx, entry); appendErr != nil {
		log.Error("failed to append error log", "error", appendErr)
	}
}

// retryDelay selects the backoff for the given retry count, clamping to the
// last configured delay.
func (p *Pool) retryDelay(retryCount int) time.Duration {
	if retryCount >= len(p.config.RetryDelays) {
		return p.config.RetryDelays[len(p.config.RetryDelays)-1]
	}
	return p.config.RetryDelays[retryCount]
}

// mirrorStatus writes the job's current state through to the status cache.
// Cache failures are logged and tolerated; polling falls back to the store.
func (p *Pool) mirrorStatus(ctx context.Context, job *domain.Job, result *domain.JobResult, log *slog.Logger) {
	status := domain.StatusFromJob(job, result)
	if err := p.cache.Set(ctx, job.ID, status); err != nil {
		log.Debug("failed to mirror status to cache", "error", err)
	}
}

// panicError wraps a recovered panic from a processing callback.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("processor panicked: %v", e.value)
}
