package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linguary/linguary-api/internal/domain"
)

// MemoryCache is an in-process StatusCache for tests and single-process
// development. TTLs are enforced lazily on read.
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[uuid.UUID]memoryEntry
	statusTTL   time.Duration
	extendedTTL time.Duration
}

type memoryEntry struct {
	status    domain.CachedJobStatus
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-process cache with default TTLs.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:     make(map[uuid.UUID]memoryEntry),
		statusTTL:   DefaultStatusTTL,
		extendedTTL: DefaultExtendedTTL,
	}
}

// Set stores the status view.
func (c *MemoryCache) Set(ctx context.Context, jobID uuid.UUID, status domain.CachedJobStatus) error {
	ttl := c.statusTTL
	if status.Status.IsTerminal() {
		ttl = c.extendedTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[jobID] = memoryEntry{
		status:    status,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// SetProgress updates the progress of an existing entry.
func (c *MemoryCache) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[jobID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}

	entry.status.Progress = progress
	c.entries[jobID] = entry
	return nil
}

// Get retrieves the cached view, honoring expiry.
func (c *MemoryCache) Get(ctx context.Context, jobID uuid.UUID) (*domain.CachedJobStatus, error) {
	c.mu.RLock()
	entry, ok := c.entries[jobID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrMiss
	}

	status := entry.status
	return &status, nil
}
