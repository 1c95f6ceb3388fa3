package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// ErrMiss is returned by Get when no entry exists for the job. The polling
// service falls back to the job store and re-primes the cache.
var ErrMiss = errors.New("cache miss")

// Default TTLs. Terminal entries get the extended TTL so late polls of a
// finished job still resolve from cache.
const (
	DefaultStatusTTL   = 24 * time.Hour
	DefaultExtendedTTL = 7 * 24 * time.Hour
)

// StatusCache is the write-through cache keyed by job ID. Every job store
// mutation and every progress milestone is mirrored here.
type StatusCache interface {
	// Set stores the full status view, choosing the TTL by whether the
	// status is terminal.
	Set(ctx context.Context, jobID uuid.UUID, status domain.CachedJobStatus) error

	// SetProgress updates only the progress of an existing entry. A miss is
	// not an error; the next Set recreates the entry.
	SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error

	// Get retrieves the cached view. Returns ErrMiss when absent or expired.
	Get(ctx context.Context, jobID uuid.UUID) (*domain.CachedJobStatus, error)
}
