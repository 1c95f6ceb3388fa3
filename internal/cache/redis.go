package cache

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

// RedisCache is the production status cache, shared by the API and worker
// processes.
type RedisCache struct {
	client      *goredis.Client
	statusTTL   time.Duration
	extendedTTL time.Duration
}

// NewRedisCache creates a cache with the given TTLs. Zero TTLs fall back to
// the package defaults.
func NewRedisCache(client *goredis.Client, statusTTL, extendedTTL time.Duration) *RedisCache {
	if statusTTL == 0 {
		statusTTL = DefaultStatusTTL
	}
	if extendedTTL == 0 {
		extendedTTL = DefaultExtendedTTL
	}
	return &RedisCache{
		client:      client,
		statusTTL:   statusTTL,
		extendedTTL: extendedTTL,
	}
}

func statusKey(jobID uuid.UUID) string {
	return "jobs:status:" + jobID.String()
}

// Set stores the status view with the TTL appropriate to its state.
func (c *RedisCache) Set(ctx context.Context, jobID uuid.UUID, status domain.CachedJobStatus) error {
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	ttl := c.statusTTL
	if status.Status.IsTerminal() {
		ttl = c.extendedTTL
	}

	if err := c.client.Set(ctx, statusKey(jobID), string(body), ttl).Err(); err != nil {
		return fmt.Errorf("failed to write status cache: %w", err)
	}
	return nil
}

// SetProgress rewrites the entry with an updated progress value, keeping the
// remaining TTL. A missing entry is left missing.
func (c *RedisCache) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	key := statusKey(jobID)

	body, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to read status cache: %w", err)
	}

	var status domain.CachedJobStatus
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		return fmt.Errorf("failed to decode cached status: %w", err)
	}

	status.Progress = progress

	updated, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	// KEEPTTL preserves the entry's remaining lifetime.
	if err := c.client.Set(ctx, key, string(updated), goredis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to write status cache: %w", err)
	}
	return nil
}

// Get retrieves the cached view.
func (c *RedisCache) Get(ctx context.Context, jobID uuid.UUID) (*domain.CachedJobStatus, error) {
	body, err := c.client.Get(ctx, statusKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read status cache: %w", err)
	}

	var status domain.CachedJobStatus
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		return nil, fmt.Errorf("failed to decode cached status: %w", err)
	}

	return &status, nil
}
