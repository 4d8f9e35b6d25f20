package checkpoint

import (
	"fmt"

	"github.com/lamim/talentradar/pkg/models"
)

// ValidateResumable verifies a loaded state can be driven further
func ValidateResumable(state *models.TaskState) error {
	if state == nil {
		return fmt.Errorf("checkpoint is empty")
	}
	if err := ValidateTaskID(state.TaskID); err != nil {
		return err
	}
	if state.Status == models.StatusFinished {
		return fmt.Errorf("task %s is already finished, nothing to resume", state.TaskID)
	}
	if state.Pos < 0 || state.Pos > len(state.Terms) {
		return fmt.Errorf("checkpoint position %d out of range [0, %d]", state.Pos, len(state.Terms))
	}
	if state.RoundsCompleted < 0 {
		return fmt.Errorf("checkpoint rounds_completed cannot be negative")
	}
	if err := state.Spec.Validate(); err != nil {
		return fmt.Errorf("checkpoint query spec is invalid: %w", err)
	}
	return nil
}

// RemainingTerms returns the number of terms not yet searched
func RemainingTerms(state *models.TaskState) int {
	if state.Pos >= len(state.Terms) {
		return 0
	}
	return len(state.Terms) - state.Pos
}

// ProgressPercentage returns the share of terms consumed
func ProgressPercentage(state *models.TaskState) float64 {
	total := len(state.Terms)
	if total == 0 {
		return 0.0
	}
	return float64(state.Pos) / float64(total) * 100.0
}
