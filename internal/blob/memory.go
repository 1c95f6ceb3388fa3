package blob

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests. FailFor makes the first N
// uploads fail to exercise the intake retry path.
type MemoryStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	FailFor int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Upload stores the blob in memory, failing while FailFor is positive.
func (s *MemoryStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailFor > 0 {
		s.FailFor--
		return "", ErrUnavailable
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[key] = buf

	return "mem://" + key, nil
}

// Get returns a stored blob and whether it exists.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	return data, ok
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
