package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetFlowsyncDir returns the flowsync state directory.
// Defaults to ~/.flowsync but can be overridden with FLOWSYNC_HOME.
func GetFlowsyncDir() (string, error) {
	if envDir := os.Getenv(HomeEnv); envDir != "" {
		return envDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, FlowsyncDir), nil
}

func inFlowsyncDir(name string) (string, error) {
	dir, err := GetFlowsyncDir()
	if err != nil {
		return "", fmt.Errorf("failed to get flowsync directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// GetConfigPath returns the config file path (FLOWSYNC_CONFIG_PATH wins)
func GetConfigPath() (string, error) {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}
	return inFlowsyncDir(ConfigFileName)
}

// GetHistoryPath returns the path of the sync history database
func GetHistoryPath() (string, error) {
	return inFlowsyncDir(HistoryFileName)
}

// GetRulesPath returns the path of the user's preserve rules
func GetRulesPath() (string, error) {
	return inFlowsyncDir(RulesFileName)
}

// GetLogDir returns the directory holding log files
func GetLogDir() (string, error) {
	return inFlowsyncDir(LogDirName)
}

// StoreFile returns the secret store location for this config
func (c *Config) StoreFile() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	return inFlowsyncDir(StoreFileName)
}

// BackupDirectory returns where remote definitions are backed up before a push
func (c *Config) BackupDirectory() (string, error) {
	if c.BackupDir != "" {
		return c.BackupDir, nil
	}
	return inFlowsyncDir(BackupDirName)
}
