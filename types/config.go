package types

// AppConfig represents the boot configuration loaded from the config file.
// It is read once at startup; runtime changes made through the admin
// listener are never written back.
type AppConfig struct {
	FolderPath         string `yaml:"folderPath"`
	Password           string `yaml:"password"`
	PasswordHash       string `yaml:"passwordHash,omitempty"` // bcrypt, used when password is empty
	RequireApproval    bool   `yaml:"requireApproval"`
	StartRunning       bool   `yaml:"startRunning"`
	ClientHost         string `yaml:"clientHost"`
	ClientPort         int    `yaml:"clientPort"`
	AdminHost          string `yaml:"adminHost"`
	AdminPort          int    `yaml:"adminPort"`
	Protocol           string `yaml:"protocol"`
	CertPEM            string `yaml:"certPEM,omitempty"`
	KeyPEM             string `yaml:"keyPEM,omitempty"`
	TicketTTLSeconds   int    `yaml:"ticketTTLSeconds"`   // 0 disables ticket expiry
	StrictDecisions    bool   `yaml:"strictDecisions"`    // reject re-deciding approved/rejected tickets
	SessionCookie      string `yaml:"sessionCookie"`
	LoginRatePerMinute int    `yaml:"loginRatePerMinute"` // 0 disables login throttling
	NotifySocket       string `yaml:"notifySocket,omitempty"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log                string
	UseConfigPath      string
	UseFolder          string
	UsePassword        string
	UseRequireApproval bool
	UseHttps           bool
	UseClientPort      int
	UseAdminPort       int
	SkipNotify         bool // if true, do not push events to the desktop GUI socket.
}

// ServerConfig is the single mutable record shared by the client and admin
// listeners. Copies handed out by the config store are snapshots.
type ServerConfig struct {
	FolderPath      string `json:"folder_path"`
	Password        string `json:"-"`
	PasswordHash    string `json:"-"`
	IsRunning       bool   `json:"is_running"`
	IsPaused        bool   `json:"is_paused"`
	RequireApproval bool   `json:"require_approval"`
	SessionToken    string `json:"-"`
	ConfigID        string `json:"config_id"`
}

// HasPassword reports whether any credential is configured.
func (c ServerConfig) HasPassword() bool {
	return c.Password != "" || c.PasswordHash != ""
}

// ConfigPatch is the JSON body for POST/PATCH /admin/status (partial update, all fields optional).
type ConfigPatch struct {
	FolderPath      *string `json:"folder_path"`
	Password        *string `json:"password"`
	IsRunning       *bool   `json:"is_running"`
	IsPaused        *bool   `json:"is_paused"`
	RequireApproval *bool   `json:"require_approval"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p ConfigPatch) IsEmpty() bool {
	return p.FolderPath == nil && p.Password == nil && p.IsRunning == nil &&
		p.IsPaused == nil && p.RequireApproval == nil
}

// FieldRejection names a submitted config field that was dropped from an update.
type FieldRejection struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ConfigUpdateResult is the outcome of a partial config update.
type ConfigUpdateResult struct {
	Applied  ServerConfig     `json:"config"`
	Rejected []FieldRejection `json:"rejected,omitempty"`
	// FolderChanged and TokenRotated report the side effects of this update.
	FolderChanged bool `json:"folder_changed"`
	TokenRotated  bool `json:"token_rotated"`
}

// Partial reports whether at least one submitted field was dropped.
func (r ConfigUpdateResult) Partial() bool {
	return len(r.Rejected) > 0
}
