package logging

import (
	"os"
	"path/filepath"
)

// appDir is the per-user state directory name.
const appDir = ".amanscout"

// DefaultLogDir returns the default log directory (~/.amanscout/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDir, "logs")
	}
	return filepath.Join(home, appDir, "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "amanscout.log")
}
