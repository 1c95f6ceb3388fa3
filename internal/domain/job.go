package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a job
type JobStatus string

// Possible job status values
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job priority levels. Priority is fixed at creation time.
const (
	PriorityStandard = 0
	PriorityPremium  = 10
)

// MaxRetries is the number of times a job may take the processing -> queued
// retry edge before it is forced into the failed state.
const MaxRetries = 3

// Common validation errors for Job
var (
	ErrEmptyJobID       = errors.New("job ID cannot be empty")
	ErrEmptyJobUserID   = errors.New("job user ID cannot be empty")
	ErrEmptyJobFilename = errors.New("job filename cannot be empty")
	ErrInvalidFileSize  = errors.New("job file size must be positive")
	ErrInvalidJobStatus = errors.New("invalid job status")
	ErrInvalidPriority  = errors.New("invalid job priority")
	ErrRetriesExhausted = errors.New("job has exhausted its retries")
)

// Job is the durable record of one submitted unit of work. It is created by
// the intake API with status queued and exclusively mutated by the worker
// pool thereafter. Jobs are never deleted by this subsystem.
type Job struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Type        string    `json:"type"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	StorageURL  string    `json:"storage_url"`
	Status      JobStatus `json:"status"`
	Priority    int       `json:"priority"`
	RetryCount  int       `json:"retry_count"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a new Job in the queued state with a fresh UUID.
// Returns an error if validation fails.
func NewJob(userID uuid.UUID, jobType, filename string, fileSize int64, storageURL string, premium bool) (*Job, error) {
	priority := PriorityStandard
	if premium {
		priority = PriorityPremium
	}

	job := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       jobType,
		Filename:   filename,
		FileSize:   fileSize,
		StorageURL: storageURL,
		Status:     JobStatusQueued,
		Priority:   priority,
		RetryCount: 0,
		CreatedAt:  time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.UserID == uuid.Nil {
		return ErrEmptyJobUserID
	}

	if j.Filename == "" {
		return ErrEmptyJobFilename
	}

	if j.FileSize <= 0 {
		return ErrInvalidFileSize
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	if j.Priority != PriorityStandard && j.Priority != PriorityPremium {
		return ErrInvalidPriority
	}

	return nil
}

// IsTerminal reports whether the status is one no further transition may
// leave.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from to next is a legal status
// transition. Transitions are monotonic forward except the single retry edge
// processing -> queued.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed || to == JobStatusQueued
	default:
		return false
	}
}

// CanRetry reports whether the job may take the processing -> queued retry
// edge given its current retry count.
func (j *Job) CanRetry() bool {
	return j.RetryCount < MaxRetries
}

func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}
