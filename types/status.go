package types

// StatusResponse is the body of the client GET /status poll.
type StatusResponse struct {
	Paused          bool   `json:"paused"`
	Running         bool   `json:"running"`
	ForceLogout     bool   `json:"force_logout"`
	ConfigID        string `json:"config_id"`
	RequireApproval bool   `json:"require_approval"`
}

// AdminStatusResponse is the body of GET /admin/status.
type AdminStatusResponse struct {
	Config       ServerConfig `json:"config"`
	HasPassword  bool         `json:"has_password"`
	ActiveUsers  int          `json:"active_users"`
	PendingCount int          `json:"pending_count"`
	ClientURL    string       `json:"client_url"`
}
