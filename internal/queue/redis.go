package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// Redis key layout. The ready set is the consumable queue; the scheduled
// set parks delayed retries until their backoff elapses; the ids set tracks
// membership for the reconciliation sweep.
const (
	readyKey     = "jobs:queue"
	scheduledKey = "jobs:queue:scheduled"
	idsKey       = "jobs:queue:ids"
)

// RedisQueue is the production priority queue, backed by a Redis sorted set
// so ordering and atomic pop hold across every intake and worker process.
type RedisQueue struct {
	client *goredis.Client
}

// NewRedisQueue creates a queue on the given client.
func NewRedisQueue(client *goredis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Push adds the job handle to the ready set.
func (q *RedisQueue) Push(ctx context.Context, qj domain.QueueJob) error {
	member, err := json.Marshal(qj)
	if err != nil {
		return fmt.Errorf("failed to encode queue job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, readyKey, goredis.Z{
		Score:  score(qj.Priority, qj.QueuedAt),
		Member: string(member),
	})
	pipe.SAdd(ctx, idsKey, qj.JobID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: push: %v", ErrUnavailable, err)
	}
	return nil
}

// PushDelayed parks the job handle in the scheduled set, scored by the time
// it becomes ready. Pop promotes due entries before consuming.
func (q *RedisQueue) PushDelayed(ctx context.Context, qj domain.QueueJob, delay time.Duration) error {
	member, err := json.Marshal(qj)
	if err != nil {
		return fmt.Errorf("failed to encode queue job: %w", err)
	}

	readyAt := time.Now().UTC().Add(delay)

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, scheduledKey, goredis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: string(member),
	})
	pipe.SAdd(ctx, idsKey, qj.JobID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: push delayed: %v", ErrUnavailable, err)
	}
	return nil
}

// Pop promotes due scheduled entries, then blocks on the ready set up to
// timeout. BZPOPMIN is the atomic pop: each entry is delivered to exactly
// one consumer across all worker processes.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*domain.QueueJob, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	res, err := q.client.BZPopMin(ctx, timeout, readyKey).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("%w: pop: %v", ErrUnavailable, err)
	}

	member, ok := res.Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected queue member type %T", res.Member)
	}

	var qj domain.QueueJob
	if err := json.Unmarshal([]byte(member), &qj); err != nil {
		return nil, fmt.Errorf("failed to decode queue job: %w", err)
	}

	if err := q.client.SRem(ctx, idsKey, qj.JobID.String()).Err(); err != nil {
		// Membership cleanup is advisory; the reconciliation sweep tolerates
		// a stale positive because claims are conditional.
		return &qj, nil
	}

	return &qj, nil
}

// promoteDue moves scheduled entries whose backoff elapsed into the ready
// set. ZREM acts as the claim: only the remover re-adds, so concurrent
// promoters never duplicate an entry.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := float64(time.Now().UTC().UnixMilli())

	members, err := q.client.ZRangeByScore(ctx, scheduledKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 64,
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: promote: %v", ErrUnavailable, err)
	}

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, scheduledKey, member).Result()
		if err != nil {
			return fmt.Errorf("%w: promote remove: %v", ErrUnavailable, err)
		}
		if removed == 0 {
			continue // another process claimed it
		}

		var qj domain.QueueJob
		if err := json.Unmarshal([]byte(member), &qj); err != nil {
			continue // malformed entry, drop rather than wedge the queue
		}

		err = q.client.ZAdd(ctx, readyKey, goredis.Z{
			Score:  score(qj.Priority, qj.QueuedAt),
			Member: member,
		}).Err()
		if err != nil {
			return fmt.Errorf("%w: promote add: %v", ErrUnavailable, err)
		}
	}

	return nil
}

// Contains checks the membership set.
func (q *RedisQueue) Contains(ctx context.Context, jobID uuid.UUID) (bool, error) {
	ok, err := q.client.SIsMember(ctx, idsKey, jobID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: contains: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// Len counts ready plus scheduled entries.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	pipe := q.client.TxPipeline()
	ready := pipe.ZCard(ctx, readyKey)
	scheduled := pipe.ZCard(ctx, scheduledKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: len: %v", ErrUnavailable, err)
	}

	return int(ready.Val() + scheduled.Val()), nil
}
