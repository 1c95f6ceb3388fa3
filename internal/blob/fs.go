package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore stores blobs on the local filesystem under a root directory. It
// serves development and single-host deployments; production swaps in a
// cloud-backed Store behind the same interface.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at dir, creating it if
// needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Upload writes the blob and returns a file URL.
func (s *FSStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(s.root, filepath.Clean(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir: %v", ErrUnavailable, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write: %v", ErrUnavailable, err)
	}

	return "file://" + path, nil
}
