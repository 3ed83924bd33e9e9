package tool

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal = errors.New("path escapes shared root")
	ErrRootNotSet    = errors.New("shared root is not configured")
	ErrRootMissing   = errors.New("shared root does not exist")
)

// CleanRelPath normalises a client-supplied path like "", ".", "/a/b", "a//b"
// or "a\b" into a slash-separated relative path without a leading slash.
// The empty string means the root. ".." segments are kept so that
// ResolveWithinRoot can reject them instead of silently clamping.
// Whitespace is part of a name and is never trimmed.
func CleanRelPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// ParentRelPath returns the relative path one level up, or nil at the root.
func ParentRelPath(rel string) *string {
	rel = CleanRelPath(rel)
	if rel == "" {
		return nil
	}
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	return &parent
}

// ResolveWithinRoot maps a client path to an absolute filesystem path under
// root. Anything resolving outside root is rejected, including escapes
// through existing symlinks.
func ResolveWithinRoot(root, userPath string) (string, error) {
	if root == "" {
		return "", ErrRootNotSet
	}
	if strings.ContainsRune(userPath, 0) {
		return "", ErrPathTraversal
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)

	rel := CleanRelPath(userPath)
	joined := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	if !isWithin(rootAbs, joined) {
		return "", ErrPathTraversal
	}

	// The root itself may be a symlink; only links below it are checked.
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRootMissing, rootAbs)
		}
		return "", err
	}
	if existing := nearestExisting(joined); existing != "" {
		resolved, err := filepath.EvalSymlinks(existing)
		if err != nil {
			return "", err
		}
		if !isWithin(filepath.Clean(realRoot), filepath.Clean(resolved)) {
			return "", ErrPathTraversal
		}
	}
	return joined, nil
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(candidate, root)
}

func nearestExisting(p string) string {
	cur := p
	for {
		_, err := os.Lstat(cur)
		if err == nil {
			return cur
		}
		if !os.IsNotExist(err) {
			return ""
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}
