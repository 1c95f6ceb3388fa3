package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/linguary/linguary-api/internal/api/shared"
	"github.com/linguary/linguary-api/internal/redact"
	"github.com/linguary/linguary-api/internal/service"
)

// StatusHandler handles GET /task-status.
type StatusHandler struct {
	status service.StatusService
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(status service.StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

// HandleStatus serves one poll. Pure read, safe for high-frequency polling.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(r.URL.Query().Get("taskId"))
	if err != nil {
		// A malformed ID cannot name a job; same contract as unknown.
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	status, err := h.status.GetStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load task status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Success:  true,
		TaskID:   taskID.String(),
		Status:   string(status.Status),
		Progress: status.Progress,
		Result:   status.Result,
		Error:    redact.String(status.Error),
	})
}
