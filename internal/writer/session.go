package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SessionManager manages the output directory of one task
type SessionManager struct {
	taskDir string
	logger  *slog.Logger
}

// NewSessionManager creates <outputDir>/<taskID>/ if needed. Resumed tasks
// reuse the directory of their first run.
func NewSessionManager(outputDir, taskID string, logger *slog.Logger) (*SessionManager, error) {
	if err := ValidateTaskDir(outputDir, taskID); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	taskDir := filepath.Join(outputDir, taskID)
	if _, err := os.Stat(taskDir); err == nil {
		logger.Debug("Reusing task output directory", "path", taskDir)
	} else if err := os.MkdirAll(taskDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create task directory: %w", err)
	} else {
		logger.Debug("Created task output directory", "path", taskDir)
	}

	return &SessionManager{
		taskDir: taskDir,
		logger:  logger,
	}, nil
}

// GetTaskDir returns the task output directory path
func (sm *SessionManager) GetTaskDir() string {
	return sm.taskDir
}

// GetLogPath returns the full path to the task log file
func (sm *SessionManager) GetLogPath() string {
	return filepath.Join(sm.taskDir, "task.log")
}

// GetResultsPath returns the full path to the final result
func (sm *SessionManager) GetResultsPath() string {
	return filepath.Join(sm.taskDir, "results.json")
}

// GetCandidatesPath returns the full path to the ranked candidate list
func (sm *SessionManager) GetCandidatesPath() string {
	return filepath.Join(sm.taskDir, "candidates.jsonl")
}

// GetPartialPath returns the full path to the latest partial result
func (sm *SessionManager) GetPartialPath() string {
	return filepath.Join(sm.taskDir, "partial.json")
}

// GetConfigBackupPath returns the full path to the config backup
func (sm *SessionManager) GetConfigBackupPath() string {
	return filepath.Join(sm.taskDir, "config.toml.bak")
}

// BackupConfig copies the config file to the task directory. An empty path
// means the built-in defaults were used and nothing is copied.
func (sm *SessionManager) BackupConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	source, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	backupPath := sm.GetConfigBackupPath()
	if err := os.WriteFile(backupPath, source, 0644); err != nil {
		return fmt.Errorf("failed to write config backup: %w", err)
	}

	sm.logger.Info("Backed up config file", "path", backupPath)
	return nil
}
