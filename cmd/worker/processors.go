package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/worker"
)

// registerProcessors binds a processing callback to every job type intake
// accepts. The pipeline treats these as opaque; the external OCR, speech and
// flashcard integrations plug in here.
func registerProcessors(registry *worker.Registry, logger *slog.Logger) error {
	for _, jobType := range []string{
		"audio_transcription",
		"pdf_ocr",
		"flashcard_generation",
	} {
		if err := registry.Register(jobType, receiptProcessor(jobType, logger)); err != nil {
			return err
		}
	}
	return nil
}

// receiptProcessor is the stand-in callback used until a job type's real
// integration lands: it walks the progress milestones and returns a receipt
// describing the processed artifact.
func receiptProcessor(jobType string, logger *slog.Logger) worker.ProcessFunc {
	return func(ctx context.Context, job *domain.Job, report worker.ProgressFunc) (json.RawMessage, error) {
		logger.Debug("processing artifact", "job_id", job.ID, "job_type", jobType)

		report(domain.ProgressDownloaded)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing canceled: %w", err)
		}

		report(domain.ProgressProcessing)
		report(domain.ProgressAlmostDone)

		body, err := json.Marshal(map[string]any{
			"job_type":     jobType,
			"filename":     job.Filename,
			"file_size":    job.FileSize,
			"storage_url":  job.StorageURL,
			"processed_at": time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		return body, nil
	}
}
