package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the base name of the active log file.
const LogFileName = "gutenindex.log"

// LogDir returns the log directory inside a data directory.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the active log file path inside a data directory.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), LogFileName)
}

// FindLogFile resolves the log file to view.
// An explicit path wins; otherwise the data directory's log is used.
func FindLogFile(explicit, dataDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := LogPath(dataDir)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found. Run a pipeline stage first.\nExpected at: %s", path)
}
