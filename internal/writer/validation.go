package writer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lamim/talentradar/internal/checkpoint"
)

// ValidateTaskDir checks that the output directory for taskID stays inside
// outputDir. The task id itself must pass checkpoint.ValidateTaskID, which
// rejects traversal, absolute paths and separators.
func ValidateTaskDir(outputDir, taskID string) error {
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return err
	}
	if outputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(outputDir, taskID))
	if err != nil {
		return fmt.Errorf("failed to resolve task directory: %w", err)
	}

	// Separator suffix keeps "/out" from matching "/out-other"
	if !strings.HasPrefix(absPath, absOutput+string(filepath.Separator)) {
		return fmt.Errorf("task directory escapes output directory")
	}

	return nil
}
