package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for JobResult and JobErrorLog
var (
	ErrEmptyResultJobID = errors.New("result job ID cannot be empty")
	ErrEmptyResultBody  = errors.New("result body cannot be empty")
	ErrEmptyErrorLog    = errors.New("error log message cannot be empty")
)

// JobResult holds the output of a completed job. It is written exactly once,
// on the terminal completed transition.
type JobResult struct {
	JobID     uuid.UUID       `json:"job_id"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJobResult creates a JobResult for the given job.
func NewJobResult(jobID uuid.UUID, result json.RawMessage) (*JobResult, error) {
	r := &JobResult{
		JobID:     jobID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the JobResult has valid data.
func (r *JobResult) Validate() error {
	if r.JobID == uuid.Nil {
		return ErrEmptyResultJobID
	}

	if len(r.Result) == 0 {
		return ErrEmptyResultBody
	}

	return nil
}

// JobErrorLog records one failed processing attempt. An entry is appended on
// every failure, not just the terminal one, for diagnostics.
type JobErrorLog struct {
	ID         uuid.UUID `json:"id"`
	JobID      uuid.UUID `json:"job_id"`
	Error      string    `json:"error"`
	StackTrace string    `json:"stack_trace,omitempty"`
	RetryCount int       `json:"retry_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewJobErrorLog creates an error log entry for a failed attempt.
func NewJobErrorLog(jobID uuid.UUID, errMsg, stackTrace string, retryCount int) (*JobErrorLog, error) {
	if jobID == uuid.Nil {
		return nil, ErrEmptyResultJobID
	}

	if errMsg == "" {
		return nil, ErrEmptyErrorLog
	}

	return &JobErrorLog{
		ID:         uuid.New(),
		JobID:      jobID,
		Error:      errMsg,
		StackTrace: stackTrace,
		RetryCount: retryCount,
		Timestamp:  time.Now().UTC(),
	}, nil
}
