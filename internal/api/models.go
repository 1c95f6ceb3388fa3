package api

import "encoding/json"

// UploadAcceptedResponse is the 202 body for an asynchronously accepted
// upload.
type UploadAcceptedResponse struct {
	Success       bool   `json:"success"`
	Accepted      bool   `json:"accepted"`
	TaskID        string `json:"taskId"`
	PollURL       string `json:"pollUrl"`
	Message       string `json:"message"`
	EstimatedTime int    `json:"estimatedTime"`
}

// UploadSyncResponse is the 200 body for a sync-mode upload.
type UploadSyncResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"jobId"`
	Message       string `json:"message"`
	EstimatedTime int    `json:"estimatedTime"`
}

// StatusResponse is the 200 body for a status poll.
type StatusResponse struct {
	Success  bool            `json:"success"`
	TaskID   string          `json:"taskId"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}
