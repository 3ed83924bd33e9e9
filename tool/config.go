package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/localshare-go/types"
)

var (
	ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml
)

const (
	DefaultClientPort    = 8080
	DefaultAdminPort     = 8081
	DefaultSessionCookie = "localshare_session"
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		FolderPath:         "",
		Password:           "",
		RequireApproval:    false,
		StartRunning:       true, // still refused at boot until folder and password are both set
		ClientHost:         "0.0.0.0",
		ClientPort:         DefaultClientPort,
		AdminHost:          "127.0.0.1",
		AdminPort:          DefaultAdminPort,
		Protocol:           "http",
		TicketTTLSeconds:   0,
		StrictDecisions:    false,
		SessionCookie:      DefaultSessionCookie,
		LoginRatePerMinute: 10,
	}
}

// LoadConfig reads the boot config from path, creating it with defaults when
// it does not exist yet. The file is never rewritten with runtime state.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %w", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

// normalizeConfig fills zero values a hand-edited file may leave behind.
func normalizeConfig(cfg *types.AppConfig) {
	def := defaultConfig()
	if cfg.ClientPort <= 0 {
		cfg.ClientPort = def.ClientPort
	}
	if cfg.AdminPort <= 0 {
		cfg.AdminPort = def.AdminPort
	}
	if cfg.ClientHost == "" {
		cfg.ClientHost = def.ClientHost
	}
	// the admin listener has no authentication of its own
	if cfg.AdminHost == "" || !IsLoopbackHost(cfg.AdminHost) {
		if cfg.AdminHost != "" {
			DefaultLogger.Warnf("adminHost %q is not a loopback address, using %s", cfg.AdminHost, def.AdminHost)
		}
		cfg.AdminHost = def.AdminHost
	}
	if cfg.Protocol != "https" {
		cfg.Protocol = "http"
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = def.SessionCookie
	}
	if cfg.TicketTTLSeconds < 0 {
		cfg.TicketTTLSeconds = 0
	}
	if cfg.LoginRatePerMinute < 0 {
		cfg.LoginRatePerMinute = 0
	}
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
