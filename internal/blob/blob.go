// Package blob defines the boundary to durable artifact storage. The
// pipeline treats storage as an external collaborator: intake uploads the
// raw file bytes and records only the returned URL on the job.
package blob

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the storage backend cannot be reached.
// Intake maps this to a 503 with Retry-After after its bounded retries.
var ErrUnavailable = errors.New("blob storage unavailable")

// Store uploads artifacts to durable storage.
type Store interface {
	// Upload stores data under key and returns a URL from which workers can
	// later fetch the artifact.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
