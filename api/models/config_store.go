package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

// ConfigStore owns the single ServerConfig shared by both listeners.
// Every read returns a snapshot; every update is applied under one lock so a
// reader never sees half of it.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg types.ServerConfig
}

// NewConfigStore seeds the store. A missing session token or config id is
// generated, and is_running is refused while folder or password is unset.
func NewConfigStore(initial types.ServerConfig) *ConfigStore {
	s := &ConfigStore{}
	if initial.SessionToken == "" {
		initial.SessionToken = tool.GenerateSessionToken()
	}
	if initial.ConfigID == "" {
		initial.ConfigID = tool.GenerateRandomUUID()
	}
	if initial.FolderPath != "" {
		abs, err := validateFolder(initial.FolderPath)
		if err != nil {
			tool.DefaultLogger.Warnf("[Config] Ignoring shared folder %q: %v", initial.FolderPath, err)
			initial.FolderPath = ""
		} else {
			initial.FolderPath = abs
		}
	}
	if initial.IsRunning && (initial.FolderPath == "" || !initial.HasPassword()) {
		tool.DefaultLogger.Warnf("[Config] Server stays stopped until a folder and a password are set")
		initial.IsRunning = false
	}
	s.cfg = initial
	return s
}

// Read returns a snapshot of the current config.
func (s *ConfigStore) Read() types.ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SessionToken returns the live session token.
func (s *ConfigStore) SessionToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SessionToken
}

// Update applies a partial config change. Fields that fail validation are
// dropped and reported in the result; the rest still apply.
func (s *ConfigStore) Update(patch types.ConfigPatch) types.ConfigUpdateResult {
	var result types.ConfigUpdateResult

	// folder validation touches the disk, so it runs before the lock
	var newFolder string
	folderOK := false
	if patch.FolderPath != nil {
		abs, err := validateFolder(*patch.FolderPath)
		if err != nil {
			result.Rejected = append(result.Rejected, types.FieldRejection{Field: "folder_path", Reason: err.Error()})
		} else {
			newFolder = abs
			folderOK = true
		}
	}
	if patch.Password != nil && *patch.Password == "" {
		result.Rejected = append(result.Rejected, types.FieldRejection{Field: "password", Reason: "password must not be empty"})
		patch.Password = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if folderOK && newFolder != next.FolderPath {
		next.FolderPath = newFolder
		next.ConfigID = tool.GenerateRandomUUID()
		result.FolderChanged = true
	}
	if patch.Password != nil && (*patch.Password != next.Password || next.PasswordHash != "") {
		next.Password = *patch.Password
		next.PasswordHash = ""
		next.SessionToken = tool.GenerateSessionToken()
		result.TokenRotated = true
	}
	if patch.IsPaused != nil {
		next.IsPaused = *patch.IsPaused
	}
	if patch.RequireApproval != nil {
		next.RequireApproval = *patch.RequireApproval
	}
	if patch.IsRunning != nil {
		// checked against the merged record so one update may set folder, password and running together
		if *patch.IsRunning && (next.FolderPath == "" || !next.HasPassword()) {
			result.Rejected = append(result.Rejected, types.FieldRejection{
				Field:  "is_running",
				Reason: "a shared folder and a password must be set before starting",
			})
		} else {
			if next.IsRunning && !*patch.IsRunning && !result.TokenRotated {
				// stopping logs everyone out, so starting again needs a fresh login
				next.SessionToken = tool.GenerateSessionToken()
				result.TokenRotated = true
			}
			next.IsRunning = *patch.IsRunning
		}
	}
	s.cfg = next
	result.Applied = next
	return result
}

// RotateSessionToken replaces the session token, invalidating every client
// session at its next guarded call. Returns the new token.
func (s *ConfigStore) RotateSessionToken() string {
	token := tool.GenerateSessionToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SessionToken = token
	return token
}

// validateFolder returns the absolute, cleaned path when p is an existing directory.
func validateFolder(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("folder path must not be empty")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid folder path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("folder does not exist: %s", abs)
		}
		return "", fmt.Errorf("failed to access folder: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return filepath.Clean(abs), nil
}
