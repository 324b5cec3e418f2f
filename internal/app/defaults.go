package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PRVIEW_CONFIG_PATH: config file location (default: ~/.config/prview.toml)
//   - PRVIEW_HOME: base directory for prview data (default: ~/.local/share/prview)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PRVIEW_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "prview.toml"), nil
}

// getBaseDir returns the base directory for prview data, checking PRVIEW_HOME
// first, then falling back to the XDG default ~/.local/share/prview.
func getBaseDir() (string, error) {
	if path := os.Getenv("PRVIEW_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "prview"), nil
}
