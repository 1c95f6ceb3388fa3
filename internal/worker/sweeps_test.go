package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/store"
)

type sweeperFixture struct {
	queue   *queue.MemoryQueue
	jobs    *store.MemoryJobStore
	logs    *store.MemoryErrorLogStore
	cache   *cache.MemoryCache
	sweeper *Sweeper
}

func newSweeperFixture(t *testing.T, cfg SweeperConfig) *sweeperFixture {
	t.Helper()

	f := &sweeperFixture{
		queue: queue.NewMemoryQueue(),
		jobs:  store.NewMemoryJobStore(),
		logs:  store.NewMemoryErrorLogStore(),
		cache: cache.NewMemoryCache(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.sweeper = NewSweeper(f.queue, f.jobs, f.logs, f.cache, cfg, logger)
	t.Cleanup(f.queue.Close)

	return f
}

func (f *sweeperFixture) createJob(t *testing.T) *domain.Job {
	t.Helper()

	job, err := domain.NewJob(uuid.New(), "audio_transcription", "lesson.mp3", 1024, "file:///blobs/lesson.mp3", false)
	require.NoError(t, err)
	require.NoError(t, f.jobs.CreateJob(context.Background(), job))

	return job
}

func TestReapStalledRequeuesJob(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{ProcessingTimeout: 10 * time.Millisecond, OrphanGrace: time.Hour})

	job := f.createJob(t)
	_, err := f.jobs.ClaimJob(ctx, job.ID)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)
	f.sweeper.ReapStalled(ctx)

	stored, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	onQueue, err := f.queue.Contains(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, onQueue)

	entries, err := f.logs.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Error, "timed out")
}

func TestReapStalledFailsExhaustedJob(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{ProcessingTimeout: 10 * time.Millisecond, OrphanGrace: time.Hour})

	job := f.createJob(t)
	for i := 0; i < domain.MaxRetries; i++ {
		_, err := f.jobs.ClaimJob(ctx, job.ID)
		require.NoError(t, err)
		_, err = f.jobs.ReleaseForRetry(ctx, job.ID, "transient failure")
		require.NoError(t, err)
	}
	_, err := f.jobs.ClaimJob(ctx, job.ID)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)
	f.sweeper.ReapStalled(ctx)

	stored, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "timed out")

	onQueue, err := f.queue.Contains(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, onQueue)

	cached, err := f.cache.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, cached.Status)
}

func TestReapStalledLeavesFreshJobs(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{ProcessingTimeout: time.Hour, OrphanGrace: time.Hour})

	job := f.createJob(t)
	_, err := f.jobs.ClaimJob(ctx, job.ID)
	require.NoError(t, err)

	f.sweeper.ReapStalled(ctx)

	stored, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, stored.Status)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcileOrphansReEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{ProcessingTimeout: time.Hour, OrphanGrace: 10 * time.Millisecond})

	// A job row with no queue entry, as left behind by a failed push.
	job := f.createJob(t)
	time.Sleep(25 * time.Millisecond)

	f.sweeper.ReconcileOrphans(ctx)

	onQueue, err := f.queue.Contains(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, onQueue)

	// A second sweep must not duplicate the entry.
	f.sweeper.ReconcileOrphans(ctx)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcileOrphansSkipsQueuedEntries(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{ProcessingTimeout: time.Hour, OrphanGrace: 10 * time.Millisecond})

	job := f.createJob(t)
	require.NoError(t, f.queue.Push(ctx, domain.NewQueueJob(job)))
	time.Sleep(25 * time.Millisecond)

	f.sweeper.ReconcileOrphans(ctx)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t, SweeperConfig{
		Interval:          50 * time.Millisecond,
		ProcessingTimeout: 10 * time.Millisecond,
		OrphanGrace:       time.Hour,
	})

	job := f.createJob(t)
	_, err := f.jobs.ClaimJob(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, f.sweeper.Start())
	t.Cleanup(f.sweeper.Stop)

	require.Eventually(t, func() bool {
		stored, err := f.jobs.GetJob(ctx, job.ID)
		return err == nil && stored.Status == domain.JobStatusQueued
	}, 3*time.Second, 10*time.Millisecond)
}
