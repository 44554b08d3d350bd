package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "threadtrack"

const (
	registryFile = "threads.json"
	historyFile  = "history.db"
	configFile   = "config.yaml"
)

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// DataDir returns the directory holding the registry and history.
//
// Resolution order:
// 1. configured (flag, env or config file), with ~ expanded
// 2. $XDG_STATE_HOME/threadtrack
// 3. ~/.local/state/threadtrack
func DataDir(configured string) (string, error) {
	if configured != "" {
		return ExpandHome(configured)
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// RegistryPath returns the path of the tracked-thread document.
func RegistryPath(dataDir string) string {
	return filepath.Join(dataDir, registryFile)
}

// HistoryPath returns the path of the notification history database.
func HistoryPath(dataDir string) string {
	return filepath.Join(dataDir, historyFile)
}

// ConfigPath returns the default config file location
// (<UserConfigDir>/threadtrack/config.yaml).
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, appName, configFile), nil
}
