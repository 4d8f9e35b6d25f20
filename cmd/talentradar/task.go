package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/internal/finalizer"
	"github.com/lamim/talentradar/pkg/models"
)

// openStore loads the configuration and opens the checkpoint store
func openStore(cmd *cobra.Command) (*app, *checkpoint.Store, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := a.store(a.logger)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, store, nil
}

// listTasks lists every readable checkpoint, newest first
func listTasks(cmd *cobra.Command, args []string) error {
	a, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	summaries := store.Summaries()
	if len(summaries) == 0 {
		fmt.Printf("No saved tasks in %s\n", store.Dir())
		return nil
	}
	slices.SortFunc(summaries, func(x, y checkpoint.Summary) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})

	fmt.Println("Saved tasks:")
	fmt.Println()
	fmt.Printf("%-35s %-18s %-10s %-8s %-11s %s\n", "TASK", "STATUS", "PROGRESS", "ROUNDS", "CANDIDATES", "UPDATED")
	fmt.Println(strings.Repeat("-", 100))

	for _, s := range summaries {
		progress := 100.0
		if s.Terms > 0 {
			progress = float64(s.Pos) / float64(s.Terms) * 100
		}
		fmt.Printf("%-35s %-18s %-10s %-8d %-11d %s\n",
			s.TaskID,
			statusLabel(s.Status, s.Expired),
			fmt.Sprintf("%.1f%%", progress),
			s.Rounds,
			s.Candidates,
			s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// inspectTask displays detailed information about a saved task
func inspectTask(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	a, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	state, ok := store.Load(taskID)
	if !ok {
		return fmt.Errorf("task %s not found or expired", taskID)
	}

	fmt.Printf("Task Information for: %s\n", taskID)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Status:              %s\n", state.Status)
	fmt.Printf("Created At:          %s\n", state.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Last Saved At:       %s\n", state.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Query:               %s\n", finalizer.SearchQuery(state.Spec))
	fmt.Printf("Top N:               %d\n", state.Spec.TopN)
	if len(state.Spec.DegreeLevels) > 0 || state.Spec.MustBeCurrentStudent {
		fmt.Printf("Degree Levels:       %s (current student: %t)\n",
			strings.Join(state.Spec.DegreeLevels, ", "), state.Spec.MustBeCurrentStudent)
	}
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Terms:             %d / %d searched (%.1f%%)\n",
		state.Pos, len(state.Terms), checkpoint.ProgressPercentage(state))
	fmt.Printf("  Rounds:            %d\n", state.RoundsCompleted)
	fmt.Printf("  Papers Selected:   %d\n", len(state.Papers))
	fmt.Printf("  Pending Seeds:     %d\n", len(state.PendingSeeds))
	fmt.Printf("  Candidates:        %d\n", len(state.Candidates))
	if remaining := checkpoint.RemainingTerms(state); remaining > 0 {
		next := state.Terms[state.Pos:min(state.Pos+3, len(state.Terms))]
		fmt.Printf("  Next Terms:        %s\n", strings.Join(next, " | "))
	}
	fmt.Println()

	fmt.Println("Statistics:")
	fmt.Printf("  Searches:          %d run, %d failed\n", state.Stats.SearchesRun, state.Stats.SearchFailures)
	fmt.Printf("  Seeds:             %d extracted, %d resolved, %d failed\n",
		state.Stats.SeedsExtracted, state.Stats.SeedsResolved, state.Stats.SeedFailures)
	fmt.Printf("  Accepted:          %d\n", state.Stats.CandidatesAccepted)
	fmt.Println()

	printCandidates("Candidates so far", state.Candidates, 10)
	fmt.Println()

	if state.Status != models.StatusFinished {
		fmt.Println("To resume this task, run:")
		fmt.Printf("  talentradar resume %s\n", taskID)
		fmt.Println("To finish it with the candidates found so far, run:")
		fmt.Printf("  talentradar finish %s\n", taskID)
	} else {
		fmt.Println("This task is finished.")
	}
	return nil
}

func deleteTask(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	a, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if !store.Delete(taskID) {
		return fmt.Errorf("task %s not found", taskID)
	}
	fmt.Printf("Deleted task %s\n", taskID)
	return nil
}

func cleanupTasks(cmd *cobra.Command, args []string) error {
	a, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n := store.CleanupExpired()
	fmt.Printf("Removed %d expired checkpoint(s) from %s\n", n, store.Dir())
	return nil
}

// sweepTasks runs the checkpoint sweeper until interrupted
func sweepTasks(cmd *cobra.Command, args []string) error {
	a, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sweeper, err := checkpoint.NewSweeper(store, a.cfg.Store.SweepSchedule, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Sweep()
	sweeper.Start()
	a.logger.Info("Sweeper running, press Ctrl+C to stop", "next", sweeper.Next())

	<-ctx.Done()
	sweeper.Stop()

	fmt.Printf("Removed %d expired checkpoint(s)\n", sweeper.Removed())
	return nil
}

// statusLabel marks expired checkpoints in listings
func statusLabel(status models.TaskStatus, expired bool) string {
	if expired {
		return string(status) + " (expired)"
	}
	return string(status)
}
