package domain

import (
	"encoding/json"
	"time"
)

// Progress milestones reported by processors during a long-running job.
// Workers mirror these to the status cache so polling clients see coarse
// forward motion rather than a stuck percentage.
const (
	ProgressQueued     = 0
	ProgressDownloaded = 20
	ProgressProcessing = 50
	ProgressAlmostDone = 90
	ProgressCompleted  = 100
)

// CachedJobStatus is the derived, disposable view of a job served to polling
// clients. The job store remains authoritative; cache entries are TTL-bounded
// and rebuilt on demand.
type CachedJobStatus struct {
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	QueuedAt    *time.Time      `json:"queued_at,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// StatusFromJob derives a cache entry from the authoritative job record and,
// for completed jobs, its result.
func StatusFromJob(job *Job, result *JobResult) CachedJobStatus {
	s := CachedJobStatus{
		Status:      job.Status,
		Progress:    progressFor(job.Status),
		QueuedAt:    &job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}

	if result != nil {
		s.Result = result.Result
	}

	return s
}

// progressFor maps a status to its milestone when no finer-grained progress
// has been reported.
func progressFor(status JobStatus) int {
	switch status {
	case JobStatusProcessing:
		return ProgressProcessing
	case JobStatusCompleted:
		return ProgressCompleted
	default:
		return ProgressQueued
	}
}
