package types

import "time"

// RequestStatus is the state of a download approval ticket.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsDecision reports whether s is a status the admin may assign.
func (s RequestStatus) IsDecision() bool {
	return s == RequestApproved || s == RequestRejected
}

// DownloadRequest is a download approval ticket keyed by ID.
type DownloadRequest struct {
	ID           string        `json:"req_id"`
	FileName     string        `json:"file_name"`
	RelativePath string        `json:"relative_path"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	DecidedAt    time.Time     `json:"decided_at,omitzero"`
	RemoteAddr   string        `json:"remote_addr,omitempty"`
}

// DownloadRequestBody is the JSON body for POST /request_download.
type DownloadRequestBody struct {
	FileName string `json:"filename" form:"filename"`
	Path     string `json:"path" form:"path"`
}

// CancelRequestBody is the JSON body for POST /cancel_request.
type CancelRequestBody struct {
	RequestID string `json:"req_id" form:"req_id"`
}

// DecisionBody is the JSON body for POST /admin/decision.
type DecisionBody struct {
	RequestID string        `json:"req_id" form:"req_id"`
	Decision  RequestStatus `json:"decision" form:"decision"`
}
