package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/linguary/linguary-api/internal/blob"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/store"
)

// DefaultMaxFileSize is the upload size limit.
const DefaultMaxFileSize = 50 << 20

// DefaultUploadRetries is how many times intake attempts the blob upload
// before giving up with ErrStorageUnavailable.
const DefaultUploadRetries = 3

// estimateSecondsPerMB drives the processing-time estimate returned to the
// client: ten seconds per started megabyte.
const estimateSecondsPerMB = 10

// UploadRequest carries one decoded upload into the intake service.
type UploadRequest struct {
	UserID      uuid.UUID
	JobType     string
	Filename    string
	ContentType string
	Data        []byte
	Premium     bool
}

// UploadReceipt is what intake hands back for an accepted job.
type UploadReceipt struct {
	Job *domain.Job

	// EstimatedSeconds is a coarse processing-time hint for the client.
	EstimatedSeconds int
}

// IntakeService accepts uploads and turns them into queued jobs.
type IntakeService interface {
	// EnqueueUpload validates the upload, stores the file, persists the job
	// row and pushes the queue entry, in that order. See the sentinel
	// errors in this package for the failure contract.
	EnqueueUpload(ctx context.Context, req UploadRequest) (*UploadReceipt, error)
}

// IntakeConfig tunes the intake service.
type IntakeConfig struct {
	MaxFileSize   int64
	UploadRetries int
}

type intakeService struct {
	blobs  blob.Store
	jobs   store.JobStore
	queue  queue.Queue
	events queue.Publisher
	config IntakeConfig
	logger *slog.Logger
}

// NewIntakeService creates the intake service.
func NewIntakeService(
	blobs blob.Store,
	jobs store.JobStore,
	q queue.Queue,
	events queue.Publisher,
	config IntakeConfig,
	logger *slog.Logger,
) IntakeService {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.UploadRetries <= 0 {
		config.UploadRetries = DefaultUploadRetries
	}

	return &intakeService{
		blobs:  blobs,
		jobs:   jobs,
		queue:  q,
		events: events,
		config: config,
		logger: logger,
	}
}

func (s *intakeService) EnqueueUpload(ctx context.Context, req UploadRequest) (*UploadReceipt, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(req.Data)) > s.config.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	storageURL, err := s.uploadWithRetries(ctx, req)
	if err != nil {
		return nil, err
	}

	job, err := domain.NewJob(req.UserID, req.JobType, req.Filename, int64(len(req.Data)), storageURL, req.Premium)
	if err != nil {
		return nil, &PipelineError{Operation: "enqueue_upload", Message: "invalid job", Err: err}
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.logger.Error("failed to persist job", "error", err, "user_id", req.UserID)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.queue.Push(ctx, domain.NewQueueJob(job)); err != nil {
		// The committed row stays queued; the reconciliation sweep will
		// enqueue it even though this request reports a 503.
		s.logger.Warn("job persisted but queue push failed, leaving for reconciler",
			"error", err, "job_id", job.ID)
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	s.logger.Info("job accepted",
		"job_id", job.ID,
		"user_id", job.UserID,
		"job_type", job.Type,
		"file_size", job.FileSize,
		"priority", job.Priority)

	s.events.Publish(ctx, "upload_accepted", map[string]any{
		"job_id":    job.ID,
		"user_id":   job.UserID,
		"job_type":  job.Type,
		"file_size": job.FileSize,
		"priority":  job.Priority,
	})

	return &UploadReceipt{
		Job:              job,
		EstimatedSeconds: EstimateProcessingSeconds(job.FileSize),
	}, nil
}

// uploadWithRetries attempts the blob upload a bounded number of times.
func (s *intakeService) uploadWithRetries(ctx context.Context, req UploadRequest) (string, error) {
	key := storageKey(req.UserID, req.Filename)

	var lastErr error
	for attempt := 1; attempt <= s.config.UploadRetries; attempt++ {
		url, err := s.blobs.Upload(ctx, key, req.Data, req.ContentType)
		if err == nil {
			return url, nil
		}

		lastErr = err
		s.logger.Warn("blob upload attempt failed",
			"attempt", attempt,
			"attempts_max", s.config.UploadRetries,
			"error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

// storageKey builds a collision-free blob key that keeps the original
// extension so processors can sniff the format.
func storageKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("uploads/%s/%s%s", userID, uuid.New(), ext)
}

// EstimateProcessingSeconds returns the processing-time hint for a file:
// ten seconds per started megabyte, with a floor of one megabyte.
func EstimateProcessingSeconds(fileSize int64) int {
	const mb = 1 << 20
	mbs := (fileSize + mb - 1) / mb
	if mbs < 1 {
		mbs = 1
	}
	return int(mbs) * estimateSecondsPerMB
}
