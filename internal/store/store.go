package store

import (
	"os"
	"path/filepath"
	"strings"
)

// Store is the local state directory: the sqlite database (preferences, session, submission
// history), config.yaml, the TUI state file and the default log file.
type Store struct {
	Dir string
}

// DefaultDir is ~/.photomaker unless PHOTOMAKER_DIR is set.
func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("PHOTOMAKER_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".photomaker"), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) LogPath() string {
	return filepath.Join(s.Dir, "photomaker.log")
}

func (s Store) MetricsPath() string {
	return filepath.Join(s.Dir, "photomaker.prom")
}
