package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	userID := uuid.New()

	job, err := NewJob(userID, "ocr", "notes.pdf", 1024, "file:///blobs/notes.pdf", false)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, userID, job.UserID)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, PriorityStandard, job.Priority)
	assert.Equal(t, 0, job.RetryCount)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestNewJob_Premium(t *testing.T) {
	job, err := NewJob(uuid.New(), "flashcards", "vocab.png", 2048, "file:///blobs/vocab.png", true)
	require.NoError(t, err)
	assert.Equal(t, PriorityPremium, job.Priority)
}

func TestNewJob_Validation(t *testing.T) {
	tests := []struct {
		name     string
		userID   uuid.UUID
		filename string
		fileSize int64
		wantErr  error
	}{
		{
			name:     "empty user ID",
			userID:   uuid.Nil,
			filename: "a.pdf",
			fileSize: 1,
			wantErr:  ErrEmptyJobUserID,
		},
		{
			name:     "empty filename",
			userID:   uuid.New(),
			filename: "",
			fileSize: 1,
			wantErr:  ErrEmptyJobFilename,
		},
		{
			name:     "zero file size",
			userID:   uuid.New(),
			filename: "a.pdf",
			fileSize: 0,
			wantErr:  ErrInvalidFileSize,
		},
		{
			name:     "negative file size",
			userID:   uuid.New(),
			filename: "a.pdf",
			fileSize: -5,
			wantErr:  ErrInvalidFileSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.userID, "ocr", tt.filename, tt.fileSize, "url", false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusQueued, JobStatusProcessing, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusQueued, true}, // retry edge
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusQueued, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusQueued, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusQueued, false},
		{JobStatusFailed, JobStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanRetry(t *testing.T) {
	job, err := NewJob(uuid.New(), "ocr", "a.pdf", 1, "url", false)
	require.NoError(t, err)

	for i := 0; i < MaxRetries; i++ {
		job.RetryCount = i
		assert.True(t, job.CanRetry(), "retry_count=%d", i)
	}

	job.RetryCount = MaxRetries
	assert.False(t, job.CanRetry())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestNewQueueJob(t *testing.T) {
	job, err := NewJob(uuid.New(), "ocr", "a.pdf", 10, "file:///blobs/a.pdf", true)
	require.NoError(t, err)

	qj := NewQueueJob(job)
	assert.Equal(t, job.ID, qj.JobID)
	assert.Equal(t, job.Type, qj.Type)
	assert.Equal(t, job.StorageURL, qj.StorageURL)
	assert.Equal(t, PriorityPremium, qj.Priority)
	assert.False(t, qj.QueuedAt.IsZero())
}
