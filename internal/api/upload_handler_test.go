package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguary/linguary-api/internal/blob"
	"github.com/linguary/linguary-api/internal/domain"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/service"
	"github.com/linguary/linguary-api/internal/store"
)

type uploadFixture struct {
	blobs   *blob.MemoryStore
	jobs    *store.MemoryJobStore
	queue   *queue.MemoryQueue
	handler *UploadHandler
}

func newUploadFixture(t *testing.T, maxFileSize int64) *uploadFixture {
	t.Helper()

	f := &uploadFixture{
		blobs: blob.NewMemoryStore(),
		jobs:  store.NewMemoryJobStore(),
		queue: queue.NewMemoryQueue(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	intake := service.NewIntakeService(f.blobs, f.jobs, f.queue, queue.NewMemoryPublisher(),
		service.IntakeConfig{MaxFileSize: maxFileSize}, logger)
	f.handler = NewUploadHandler(intake, maxFileSize)
	t.Cleanup(f.queue.Close)

	return f
}

// multipartUpload builds a multipart request with one file part plus any
// extra form fields.
func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHandleUploadAccepted(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "lesson.mp3", bytes.Repeat([]byte("a"), 1024), nil)
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp UploadAcceptedResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "/task-status?taskId="+resp.TaskID, resp.PollURL)
	assert.Equal(t, 10, resp.EstimatedTime)

	jobID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)

	job, err := f.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, "audio_transcription", job.Type)

	onQueue, err := f.queue.Contains(context.Background(), jobID)
	require.NoError(t, err)
	assert.True(t, onQueue)
}

func TestHandleUploadSyncMode(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "notes.pdf", []byte("pdf bytes"), map[string]string{"mode": "sync"})
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadSyncResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, 10, resp.EstimatedTime)
}

func TestHandleUploadPremiumHeader(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "lesson.mp3", []byte("audio"), nil)
	req.Header.Set("X-Premium", "true")
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp UploadAcceptedResponse
	decodeBody(t, rec, &resp)
	jobID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)

	job, err := f.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityPremium, job.Priority)
}

func TestHandleUploadMissingFile(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "", nil, map[string]string{"mode": "async"})
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.jobs.Len())
}

func TestHandleUploadEmptyFile(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "empty.mp3", nil, nil)
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Zero(t, f.jobs.Len())

	n, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleUploadTooLarge(t *testing.T) {
	f := newUploadFixture(t, 64)

	req := multipartUpload(t, "big.mp3", bytes.Repeat([]byte("a"), 65), nil)
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, f.jobs.Len())
	assert.Zero(t, f.blobs.Len())
}

func TestHandleUploadStorageDown(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)
	f.blobs.FailFor = 3

	req := multipartUpload(t, "lesson.mp3", []byte("audio"), nil)
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Zero(t, f.jobs.Len())
}

func TestHandleUploadQueueDown(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)
	f.queue.Close()

	req := multipartUpload(t, "lesson.mp3", []byte("audio"), nil)
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	// The committed row stays behind for the reconciliation sweep.
	assert.Equal(t, 1, f.jobs.Len())
}

func TestHandleUploadInvalidUserID(t *testing.T) {
	f := newUploadFixture(t, service.DefaultMaxFileSize)

	req := multipartUpload(t, "lesson.mp3", []byte("audio"), nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	f.handler.HandleUpload(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		filename string
		want     string
	}{
		{name: "explicit type wins", explicit: "flashcard_generation", filename: "notes.pdf", want: "flashcard_generation"},
		{name: "pdf", filename: "notes.pdf", want: "pdf_ocr"},
		{name: "image", filename: "page.JPG", want: "pdf_ocr"},
		{name: "audio", filename: "lesson.mp3", want: "audio_transcription"},
		{name: "fallback", filename: "notes.txt", want: "flashcard_generation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jobTypeFor(tt.explicit, tt.filename))
		})
	}
}
