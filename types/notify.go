package types

const (
	NotifyTypeRequestCreated   = "request_created"
	NotifyTypeRequestDecided   = "request_decided"
	NotifyTypeRequestCancelled = "request_cancelled"
	NotifyTypeConfigChanged    = "config_changed"
	NotifyTypeSessionsRevoked  = "sessions_revoked"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "request_created"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
