package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueJob is the lightweight handle placed on the priority queue. It
// carries just enough for a worker to locate and claim the durable Job
// record; the queue never carries large payloads.
type QueueJob struct {
	JobID      uuid.UUID `json:"job_id"`
	Type       string    `json:"type"`
	StorageURL string    `json:"storage_url"`
	Priority   int       `json:"priority"`
	QueuedAt   time.Time `json:"queued_at"`
}

// NewQueueJob builds the queue handle for a job.
func NewQueueJob(job *Job) QueueJob {
	return QueueJob{
		JobID:      job.ID,
		Type:       job.Type,
		StorageURL: job.StorageURL,
		Priority:   job.Priority,
		QueuedAt:   time.Now().UTC(),
	}
}
