package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linguary/linguary-api/internal/domain"
)

// ProgressFunc reports a progress milestone (0-100) during processing.
// Workers mirror reported values to the status cache.
type ProgressFunc func(progress int)

// ProcessFunc is the injected processing callback for one job type (OCR,
// flashcard generation, and so on). It is opaque to the pipeline: it
// receives the claimed job and a progress reporter, and returns the result
// body or an error. The context carries the processing timeout.
type ProcessFunc func(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error)

// Registry maps job types to their processing callbacks. It is built at
// startup and passed into the pool constructor; there is no implicit
// registration.
type Registry struct {
	processors map[string]ProcessFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]ProcessFunc)}
}

// Register binds a processing callback to a job type. Registering the same
// type twice is a programming error and fails loudly.
func (r *Registry) Register(jobType string, fn ProcessFunc) error {
	if jobType == "" {
		return fmt.Errorf("job type cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("processor for %q cannot be nil", jobType)
	}
	if _, exists := r.processors[jobType]; exists {
		return fmt.Errorf("processor for %q already registered", jobType)
	}

	r.processors[jobType] = fn
	return nil
}

// Get returns the processor for a job type.
func (r *Registry) Get(jobType string) (ProcessFunc, bool) {
	fn, ok := r.processors[jobType]
	return fn, ok
}

// Types returns the registered job types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	return types
}
