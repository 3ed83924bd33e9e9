package share

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var (
	// ErrPickerUnavailable means no dialog helper exists on this machine.
	ErrPickerUnavailable = errors.New("no folder picker available")
	// ErrPickerCancelled means the operator closed the dialog without choosing.
	ErrPickerCancelled = errors.New("folder selection cancelled")
)

// FolderPicker asks the operator to choose a directory.
type FolderPicker interface {
	PickFolder(ctx context.Context) (string, error)
}

// CommandPicker shows the native dialog through a platform helper:
// zenity or kdialog on Linux, osascript on macOS, PowerShell on Windows.
type CommandPicker struct {
	// Title is shown in the dialog.
	Title string
	// lookPath is exec.LookPath, replaceable in tests.
	lookPath func(string) (string, error)
}

func NewCommandPicker() *CommandPicker {
	return &CommandPicker{Title: "Select Folder to Share", lookPath: exec.LookPath}
}

func (p *CommandPicker) command(ctx context.Context) (*exec.Cmd, error) {
	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`POSIX path of (choose folder with prompt %q)`, p.Title)
		return exec.CommandContext(ctx, "osascript", "-e", script), nil
	case "windows":
		script := `Add-Type -AssemblyName System.Windows.Forms;` +
			`$d = New-Object System.Windows.Forms.FolderBrowserDialog;` +
			`if ($d.ShowDialog() -eq 'OK') { $d.SelectedPath }`
		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-STA", "-Command", script), nil
	default:
		if bin, err := lookPath("zenity"); err == nil {
			return exec.CommandContext(ctx, bin, "--file-selection", "--directory", "--title="+p.Title), nil
		}
		if bin, err := lookPath("kdialog"); err == nil {
			return exec.CommandContext(ctx, bin, "--getexistingdirectory", ".", "--title", p.Title), nil
		}
		return nil, ErrPickerUnavailable
	}
}

// PickFolder blocks until the dialog closes or ctx is done.
func (p *CommandPicker) PickFolder(ctx context.Context) (string, error) {
	cmd, err := p.command(ctx)
	if err != nil {
		return "", err
	}
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// every helper exits non-zero when the dialog is dismissed
			return "", ErrPickerCancelled
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrPickerUnavailable
		}
		return "", fmt.Errorf("folder picker failed: %w", err)
	}
	folder := strings.TrimSpace(string(out))
	if folder == "" {
		return "", ErrPickerCancelled
	}
	return folder, nil
}
