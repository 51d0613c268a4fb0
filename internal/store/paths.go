package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the default database file name inside the global paysim directory.
const DBFile = "runs.db"

// GlobalPaysimPath returns the path to the global .paysim directory.
// On Unix: ~/.paysim
// On Windows: %USERPROFILE%\.paysim
func GlobalPaysimPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".paysim"), nil
}

// DefaultDBPath returns ~/.paysim/runs.db.
func DefaultDBPath() (string, error) {
	globalPath, err := GlobalPaysimPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(globalPath, DBFile), nil
}

// EnsureGlobalPaysimDir creates the global .paysim directory if it doesn't exist.
// Returns nil if the directory already exists or was successfully created.
func EnsureGlobalPaysimDir() error {
	globalPath, err := GlobalPaysimPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0700); err != nil {
		return fmt.Errorf("failed to create global .paysim directory: %w", err)
	}

	return nil
}
