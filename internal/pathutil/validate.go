// Package pathutil confines file writes (run exports, saved configs) to
// known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowed is returned when a path escapes every allowed directory.
var ErrOutsideAllowed = errors.New("path is outside allowed directories")

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.paysim/runs.db" becomes ".../.paysim/runs.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath checks that path, after cleaning and symlink resolution of
// its existing ancestors, lies inside one of allowedDirs. The path itself
// need not exist yet.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	resolved, err := resolve(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	for _, allowed := range allowedDirs {
		base, err := resolve(allowed)
		if err != nil {
			continue
		}
		if isSubpath(resolved, base) {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrOutsideAllowed, RedactPath(resolved))
}

// resolve makes path absolute and evaluates symlinks on its deepest
// existing ancestor, re-appending the part that does not exist yet.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}

	var tail []string
	current := abs
	for {
		if real, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				real = filepath.Join(real, tail[i])
			}
			return real, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("cannot resolve path: %s", RedactPath(abs))
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}

// isSubpath checks whether path is equal to or below base.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	// "/tmp/foo" must not match "/tmp/foobar"
	return strings.HasPrefix(path, strings.TrimSuffix(base, string(os.PathSeparator))+string(os.PathSeparator))
}

// DefaultExportDir returns ~/.paysim/exports.
func DefaultExportDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".paysim", "exports"), nil
}

// AllowedExportDirs returns the directories run exports may be written to:
// ~/.paysim/exports and, when workDir is non-empty, workDir itself.
func AllowedExportDirs(workDir string) ([]string, error) {
	exportDir, err := DefaultExportDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exportDir}
	if workDir != "" {
		dirs = append(dirs, workDir)
	}
	return dirs, nil
}
