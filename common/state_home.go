package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetStateHome returns a directory path for storing user-specific state data
// (logs, checkpoint databases). If needed, it also creates the necessary
// directories according to the XDG spec. Can be overridden by setting the
// CONVOCTX_STATE_HOME environment variable.
func GetStateHome() (string, error) {
	stateDir := os.Getenv("CONVOCTX_STATE_HOME")
	if stateDir != "" {
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create state directory from CONVOCTX_STATE_HOME: %w", err)
		}
		return stateDir, nil
	}

	stateDir = filepath.Join(xdg.StateHome, "convoctx")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return stateDir, nil
}
