package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/linguary/linguary-api/internal/api/shared"
	"github.com/linguary/linguary-api/internal/service"
)

// multipartOverhead is the slack added to the body limit for multipart
// boundaries and form fields surrounding the file part.
const multipartOverhead = 1 << 20

// Retry-After values per failing intake dependency.
const (
	retryAfterStorage = 60
	retryAfterStore   = 60
	retryAfterQueue   = 30
)

// UploadHandler handles POST /upload.
type UploadHandler struct {
	intake      service.IntakeService
	maxFileSize int64
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(intake service.IntakeService, maxFileSize int64) *UploadHandler {
	if maxFileSize <= 0 {
		maxFileSize = service.DefaultMaxFileSize
	}
	return &UploadHandler{intake: intake, maxFileSize: maxFileSize}
}

// HandleUpload accepts one multipart upload and enqueues it as a job.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File exceeds the 50MB limit")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File exceeds the 50MB limit")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}

	userID, err := userIDFrom(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	req := service.UploadRequest{
		UserID:      userID,
		JobType:     jobTypeFor(r.FormValue("type"), header.Filename),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Premium:     isPremium(r),
	}

	receipt, err := h.intake.EnqueueUpload(r.Context(), req)
	if err != nil {
		h.respondIntakeError(w, r, err)
		return
	}

	job := receipt.Job
	if strings.EqualFold(r.FormValue("mode"), "sync") {
		shared.RespondWithJSON(w, r, http.StatusOK, UploadSyncResponse{
			Success:       true,
			JobID:         job.ID.String(),
			Message:       "File received and queued for processing",
			EstimatedTime: receipt.EstimatedSeconds,
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, UploadAcceptedResponse{
		Success:       true,
		Accepted:      true,
		TaskID:        job.ID.String(),
		PollURL:       fmt.Sprintf("/task-status?taskId=%s", job.ID),
		Message:       "File received and queued for processing",
		EstimatedTime: receipt.EstimatedSeconds,
	})
}

func (h *UploadHandler) respondIntakeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyFile):
		shared.RespondWithError(w, r, http.StatusBadRequest, "Uploaded file is empty")
	case errors.Is(err, service.ErrFileTooLarge):
		shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File exceeds the 50MB limit")
	case errors.Is(err, service.ErrStorageUnavailable):
		shared.RespondWithRetryableError(w, r, http.StatusServiceUnavailable, retryAfterStorage,
			"File storage is temporarily unavailable, please retry", err)
	case errors.Is(err, service.ErrStoreUnavailable):
		shared.RespondWithRetryableError(w, r, http.StatusServiceUnavailable, retryAfterStore,
			"Service is temporarily unavailable, please retry", err)
	case errors.Is(err, service.ErrQueueUnavailable):
		shared.RespondWithRetryableError(w, r, http.StatusServiceUnavailable, retryAfterQueue,
			"Service is temporarily unavailable, please retry", err)
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to process upload", err)
	}
}

// userIDFrom reads the authenticated user from the X-User-ID header set by
// the edge proxy. Requests without one get an anonymous identity.
func userIDFrom(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}

func isPremium(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Premium"), "true") ||
		strings.EqualFold(r.FormValue("premium"), "true")
}

// jobTypeFor picks the processor type: an explicit form value wins, else the
// file extension decides.
func jobTypeFor(explicit, filename string) string {
	if explicit != "" {
		return explicit
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return "pdf_ocr"
	case ".mp3", ".m4a", ".wav", ".ogg":
		return "audio_transcription"
	default:
		return "flashcard_generation"
	}
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
