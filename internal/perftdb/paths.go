package perftdb

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

const appName = "chesscore"

// DataDir returns the platform-specific data directory, creating it if needed.
// - macOS: ~/Library/Application Support/chesscore/
// - Linux: $XDG_DATA_HOME/chesscore/ or ~/.local/share/chesscore/
// - Windows: %APPDATA%/chesscore/
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "perftdb: home directory")
		}
		baseDir = filepath.Join(home, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", errors.Wrap(err, "perftdb: home directory")
			}
			baseDir = filepath.Join(home, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", errors.Wrap(err, "perftdb: home directory")
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	dir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "perftdb: creating %s", dir)
	}
	return dir, nil
}

// DefaultDir returns the directory Open uses when given an empty path.
func DefaultDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(dataDir, "perft")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "perftdb: creating %s", dir)
	}
	return dir, nil
}
