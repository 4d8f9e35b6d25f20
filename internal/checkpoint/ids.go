package checkpoint

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const taskIDPrefix = "task_"

// Task id format: task_20251030_143000_1a2b3c4d
var taskIDRegex = regexp.MustCompile(`^task_\d{8}_\d{6}_[0-9a-f]{8}$`)

// NewTaskID returns a fresh task id stamped with the given time
func NewTaskID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%s_%s", taskIDPrefix, now.Format("20060102_150405"), suffix)
}

// ValidateTaskID validates a task id before it is turned into a file path.
// It rejects path traversal, absolute paths, separators and any name that
// does not follow the task id format.
func ValidateTaskID(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}

	if strings.Contains(taskID, "..") {
		return fmt.Errorf("invalid task id: contains '..' (path traversal attempt)")
	}

	if filepath.IsAbs(taskID) {
		return fmt.Errorf("invalid task id: must not be an absolute path")
	}

	if strings.ContainsAny(taskID, "/\\") {
		return fmt.Errorf("invalid task id: must not contain path separators")
	}

	if !taskIDRegex.MatchString(taskID) {
		return fmt.Errorf("invalid task id format: expected 'task_YYYYMMDD_HHMMSS_xxxxxxxx', got '%s'", taskID)
	}

	return nil
}
