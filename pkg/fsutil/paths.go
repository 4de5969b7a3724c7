package fsutil

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the platform-specific configuration directory for the application
// On Linux: ~/.config/opendata/
// On macOS: ~/Library/Application Support/opendata/
// On Windows: %AppData%\opendata\
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}
