package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
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

const waitFor = 3 * time.Second

type poolFixture struct {
	queue   *queue.MemoryQueue
	jobs    *store.MemoryJobStore
	results *store.MemoryResultStore
	logs    *store.MemoryErrorLogStore
	cache   *cache.MemoryCache
	pool    *Pool
}

func newPoolFixture(t *testing.T, registry *Registry) *poolFixture {
	t.Helper()

	f := &poolFixture{
		queue:   queue.NewMemoryQueue(),
		jobs:    store.NewMemoryJobStore(),
		results: store.NewMemoryResultStore(),
		logs:    store.NewMemoryErrorLogStore(),
		cache:   cache.NewMemoryCache(),
	}

	cfg := Config{
		Count:             2,
		PopTimeout:        50 * time.Millisecond,
		ProcessingTimeout: time.Second,
		RetryDelays:       []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	settle := store.NewMemorySettlementStore(f.jobs, f.results)
	f.pool = NewPool(f.queue, f.jobs, settle, f.logs, f.cache, registry, cfg, logger)
	f.pool.Start()
	t.Cleanup(func() {
		f.pool.Stop()
		f.queue.Close()
	})

	return f
}

// submit creates a job row and pushes its queue handle, the same two steps
// intake performs.
func (f *poolFixture) submit(t *testing.T, jobType string) *domain.Job {
	t.Helper()

	job, err := domain.NewJob(uuid.New(), jobType, "lesson.mp3", 1024, "file:///blobs/lesson.mp3", false)
	require.NoError(t, err)
	require.NoError(t, f.jobs.CreateJob(context.Background(), job))
	require.NoError(t, f.queue.Push(context.Background(), domain.NewQueueJob(job)))

	return job
}

func (f *poolFixture) jobStatus(t *testing.T, jobID uuid.UUID) domain.JobStatus {
	t.Helper()

	job, err := f.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	return job.Status
}

func TestPoolCompletesJob(t *testing.T) {
	registry := NewRegistry()
	body := json.RawMessage(`{"transcript":"hola, buenos dias"}`)
	require.NoError(t, registry.Register("audio_transcription", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		report(domain.ProgressDownloaded)
		report(domain.ProgressAlmostDone)
		return body, nil
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "audio_transcription")

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusCompleted
	}, waitFor, 10*time.Millisecond)

	result, err := f.results.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(result.Result))

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 0, stored.RetryCount)

	cached, err := f.cache.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, cached.Status)
	assert.Equal(t, domain.ProgressCompleted, cached.Progress)

	entries, err := f.logs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPoolMirrorsReportedProgress(t *testing.T) {
	release := make(chan struct{})
	registry := NewRegistry()
	require.NoError(t, registry.Register("pdf_ocr", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		report(domain.ProgressAlmostDone)
		<-release
		return json.RawMessage(`{"pages":3}`), nil
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "pdf_ocr")

	require.Eventually(t, func() bool {
		cached, err := f.cache.Get(context.Background(), job.ID)
		return err == nil && cached.Progress == domain.ProgressAlmostDone
	}, waitFor, 10*time.Millisecond)

	close(release)

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusCompleted
	}, waitFor, 10*time.Millisecond)
}

func TestPoolRetriesThenFails(t *testing.T) {
	var attempts atomic.Int32
	registry := NewRegistry()
	require.NoError(t, registry.Register("audio_transcription", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		attempts.Add(1)
		return nil, errors.New("upstream transcription service rejected the file")
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "audio_transcription")

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusFailed
	}, waitFor, 10*time.Millisecond)

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRetries, stored.RetryCount)
	assert.Contains(t, stored.Error, "rejected the file")

	// Initial attempt plus one per retry.
	assert.Equal(t, int32(domain.MaxRetries+1), attempts.Load())

	entries, err := f.logs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, domain.MaxRetries+1)
	assert.Equal(t, 0, entries[0].RetryCount)
	assert.Equal(t, domain.MaxRetries, entries[len(entries)-1].RetryCount)

	cached, err := f.cache.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, cached.Status)
	assert.Contains(t, cached.Error, "rejected the file")
}

func TestPoolRecoversFromProcessorPanic(t *testing.T) {
	var attempts atomic.Int32
	registry := NewRegistry()
	require.NoError(t, registry.Register("flashcard_generation", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		if attempts.Add(1) == 1 {
			panic("nil deck template")
		}
		return json.RawMessage(`{"cards":12}`), nil
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "flashcard_generation")

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusCompleted
	}, waitFor, 10*time.Millisecond)

	entries, err := f.logs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Error, "nil deck template")
	assert.NotEmpty(t, entries[0].StackTrace)
}

func TestPoolFailsUnknownJobType(t *testing.T) {
	f := newPoolFixture(t, NewRegistry())
	job := f.submit(t, "audio_transcription")

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusFailed
	}, waitFor, 10*time.Millisecond)

	// No processor means no retry: the failure is structural.
	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Contains(t, stored.Error, "no processor registered")

	entries, err := f.logs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPoolDropsDuplicateDelivery(t *testing.T) {
	var invocations atomic.Int32
	registry := NewRegistry()
	require.NoError(t, registry.Register("pdf_ocr", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		invocations.Add(1)
		return json.RawMessage(`{"pages":1}`), nil
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "pdf_ocr")
	require.NoError(t, f.queue.Push(context.Background(), domain.NewQueueJob(job)))

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusCompleted
	}, waitFor, 10*time.Millisecond)

	// Give the second delivery time to be popped and dropped.
	require.Eventually(t, func() bool {
		n, err := f.queue.Len(context.Background())
		return err == nil && n == 0
	}, waitFor, 10*time.Millisecond)

	assert.Equal(t, int32(1), invocations.Load())

	entries, err := f.logs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPoolFailsOnEmptyResult(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("audio_transcription", func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
		return nil, nil
	}))

	f := newPoolFixture(t, registry)
	job := f.submit(t, "audio_transcription")

	require.Eventually(t, func() bool {
		return f.jobStatus(t, job.ID) == domain.JobStatusFailed
	}, waitFor, 10*time.Millisecond)

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Error, "invalid result")
}
