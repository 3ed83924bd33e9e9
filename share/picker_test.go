package share

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
)

func TestCommandPickerUnavailableWithoutHelpers(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("helpers are part of the OS")
	}
	p := NewCommandPicker()
	p.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	if _, err := p.PickFolder(context.Background()); !errors.Is(err, ErrPickerUnavailable) {
		t.Fatalf("expected ErrPickerUnavailable, got %v", err)
	}
}
