package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// MemoryQueue is an in-process queue with the same ordering and delivery
// contract as RedisQueue. It backs tests and single-process development; a
// horizontally scaled deployment must use the shared broker.
type MemoryQueue struct {
	mu        sync.Mutex
	ready     jobHeap
	scheduled []delayedEntry
	signal    chan struct{}
	closed    bool
}

type delayedEntry struct {
	qj      domain.QueueJob
	readyAt time.Time
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		signal: make(chan struct{}, 1),
	}
}

// Push enqueues a job handle.
func (q *MemoryQueue) Push(ctx context.Context, qj domain.QueueJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	heap.Push(&q.ready, qj)
	q.notify()
	return nil
}

// PushDelayed parks a job handle until the delay elapses.
func (q *MemoryQueue) PushDelayed(ctx context.Context, qj domain.QueueJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.scheduled = append(q.scheduled, delayedEntry{qj: qj, readyAt: time.Now().Add(delay)})
	return nil
}

// Pop removes and returns the highest-priority ready entry, blocking up to
// timeout. Returns ErrEmpty when the wait elapses.
func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*domain.QueueJob, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}

		q.promoteDueLocked()

		if q.ready.Len() > 0 {
			qj := heap.Pop(&q.ready).(domain.QueueJob)
			q.mu.Unlock()
			return &qj, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEmpty
		case <-q.signal:
			// retry
		case <-time.After(10 * time.Millisecond):
			// re-check for due scheduled entries
		}
	}
}

// Contains reports whether the job is on the queue, ready or scheduled.
func (q *MemoryQueue) Contains(ctx context.Context, jobID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, qj := range q.ready {
		if qj.JobID == jobID {
			return true, nil
		}
	}
	for _, e := range q.scheduled {
		if e.qj.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of entries, ready plus scheduled.
func (q *MemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len() + len(q.scheduled), nil
}

// Close shuts the queue down. Subsequent operations return ErrClosed.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notify()
}

// promoteDueLocked moves due scheduled entries onto the ready heap.
// Caller must hold q.mu.
func (q *MemoryQueue) promoteDueLocked() {
	if len(q.scheduled) == 0 {
		return
	}

	now := time.Now()
	remaining := q.scheduled[:0]
	for _, e := range q.scheduled {
		if !e.readyAt.After(now) {
			heap.Push(&q.ready, e.qj)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.scheduled = remaining
}

func (q *MemoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// jobHeap orders entries by the same score as the Redis queue: priority
// descending, then enqueue time ascending.
type jobHeap []domain.QueueJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	return score(h[i].Priority, h[i].QueuedAt) < score(h[j].Priority, h[j].QueuedAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(domain.QueueJob))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
