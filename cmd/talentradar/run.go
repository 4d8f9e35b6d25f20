package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/internal/util"
	"github.com/lamim/talentradar/internal/writer"
	"github.com/lamim/talentradar/pkg/models"
)

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	spec, err := query.apply(cmd, a.cfg.Query)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return a.executeTask(cmd, checkpoint.NewTaskID(time.Now()), spec, nil)
}

func runResume(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store(a.logger)
	if err != nil {
		return err
	}

	target, err := planResume(store, taskID, !noRestart, func() (models.QuerySpec, error) {
		return query.apply(cmd, a.cfg.Query)
	}, time.Now())
	if err != nil {
		return err
	}

	if target.State == nil {
		fmt.Printf("Task %s not found or expired, starting new task %s\n\n", taskID, target.TaskID)
		return a.executeTask(cmd, target.TaskID, target.Spec, nil)
	}

	fmt.Printf("Resuming task: %s\n", taskID)
	fmt.Printf("Rounds: %d, Progress: %.1f%%, Candidates: %d\n\n",
		target.State.RoundsCompleted, checkpoint.ProgressPercentage(target.State), len(target.State.Candidates))

	return a.executeTask(cmd, target.TaskID, target.Spec, target.State)
}

// resumeTarget is what a resume request runs. State is nil for a fresh task.
type resumeTarget struct {
	TaskID string
	Spec   models.QuerySpec
	State  *models.TaskState
}

// planResume loads the checkpoint for taskID. A missing, expired or corrupt
// checkpoint starts a fresh task from freshSpec unless restart is false.
func planResume(store *checkpoint.Store, taskID string, restart bool, freshSpec func() (models.QuerySpec, error), now time.Time) (resumeTarget, error) {
	state, ok := store.Load(taskID)
	if ok && state.Status == models.StatusFinished {
		return resumeTarget{}, fmt.Errorf("task %s is already finished, nothing to resume", taskID)
	}

	var reason error
	switch {
	case !ok:
		reason = fmt.Errorf("task %s not found or expired", taskID)
	default:
		if err := checkpoint.ValidateResumable(state); err != nil {
			reason = fmt.Errorf("checkpoint validation failed: %w", err)
		}
	}
	if reason == nil {
		return resumeTarget{TaskID: taskID, Spec: state.Spec, State: state}, nil
	}
	if !restart {
		return resumeTarget{}, reason
	}

	spec, err := freshSpec()
	if err != nil {
		return resumeTarget{}, fmt.Errorf("%w; cannot start a new task: invalid query: %w", reason, err)
	}
	return resumeTarget{TaskID: checkpoint.NewTaskID(now), Spec: spec}, nil
}

func runFinish(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := writer.NewSessionManager(a.cfg.Output.Dir, taskID, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	logger, logFile, err := writer.SetupLogger(session.GetLogPath(), a.level)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer closeLog(logFile)

	store, err := a.store(logger)
	if err != nil {
		return err
	}
	state, ok := store.Load(taskID)
	if !ok {
		return fmt.Errorf("task %s not found or expired", taskID)
	}

	sched, err := a.scheduler(logger, store, "", nil)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	final, err := sched.Finish(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}
	if err := writer.NewResultWriter(session, logger).WriteFinal(*final); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	printFinal(*final, session)
	return nil
}

// executeTask runs one Execute call for a new (resume == nil) or resumed
// task and writes its partial or final result to the task directory
func (a *app) executeTask(cmd *cobra.Command, taskID string, spec models.QuerySpec, resume *models.TaskState) error {
	session, err := writer.NewSessionManager(a.cfg.Output.Dir, taskID, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	logger, logFile, err := writer.SetupLogger(session.GetLogPath(), a.level)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer closeLog(logFile)

	logger.Info("TalentRadar starting",
		"version", Version,
		"config", a.configFile,
		"task_id", taskID,
		"task_dir", session.GetTaskDir(),
		"resume", resume != nil)

	if resume == nil {
		if err := session.BackupConfig(a.configFile); err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	store, err := a.store(logger)
	if err != nil {
		return err
	}

	bar := newProgressSink()
	sched, err := a.scheduler(logger, store, taskID, bar.Update)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, runErr := sched.Execute(ctx, spec, a.rounds(cmd), resume)
	bar.Stop(outcome != nil && outcome.Status == models.StatusFinished)
	if outcome == nil {
		return fmt.Errorf("search failed: %w", runErr)
	}

	results := writer.NewResultWriter(session, logger)
	switch outcome.Status {
	case models.StatusFinished:
		if err := results.WriteFinal(*outcome.Final); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		printFinal(*outcome.Final, session)
	default:
		if err := results.WritePartial(*outcome.Partial); err != nil {
			return fmt.Errorf("failed to write partial results: %w", err)
		}
		printPartial(*outcome.Partial, session)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Search interrupted - resume from checkpoint",
				"task_id", outcome.State.TaskID,
				"resume_command", "talentradar resume "+outcome.State.TaskID)
			return fmt.Errorf("search interrupted (resume with: talentradar resume %s)", outcome.State.TaskID)
		}
		return fmt.Errorf("search failed: %w", runErr)
	}
	return nil
}

func closeLog(f *os.File) {
	if f != nil {
		_ = f.Sync()
		_ = f.Close()
	}
}

func printPartial(p models.PartialResult, session *writer.SessionManager) {
	fmt.Println()
	fmt.Println(p.Message)
	fmt.Printf("Terms searched: %d / %d\n\n", p.Pos, p.TotalTerms)
	printCandidates("Candidates so far", p.CurrentCandidates, 10)

	fmt.Println()
	fmt.Printf("Partial results: %s\n", session.GetPartialPath())
	fmt.Println("To continue searching, run:")
	fmt.Printf("  talentradar resume %s\n", p.TaskID)
	fmt.Println("To stop here and rank what was found, run:")
	fmt.Printf("  talentradar finish %s\n", p.TaskID)
}

func printFinal(r models.FinalResult, session *writer.SessionManager) {
	fmt.Println()
	fmt.Printf("Task %s finished after %d rounds\n", r.TaskID, r.RoundsCompleted)
	fmt.Printf("Query: %s\n", r.SearchQuery)
	fmt.Printf("Candidates found: %d, papers selected: %d\n\n", r.TotalCandidatesFound, len(r.Papers))

	printCandidates("Recommended candidates", r.Recommended, len(r.Recommended))
	if len(r.Additional) > 0 {
		fmt.Printf("\n%d additional candidates in %s\n", len(r.Additional), session.GetCandidatesPath())
	}

	fmt.Println()
	fmt.Printf("Results: %s\n", session.GetResultsPath())
}

func printCandidates(title string, candidates []models.CandidateProfile, limit int) {
	if len(candidates) == 0 {
		fmt.Printf("%s: none\n", title)
		return
	}

	fmt.Printf("%s:\n", title)
	fmt.Printf("%-4s %-28s %-7s %-6s %s\n", "#", "NAME", "SCORE", "H-IDX", "AFFILIATION")
	fmt.Println(strings.Repeat("-", 80))
	for i, c := range candidates {
		if i == limit {
			fmt.Printf("... and %d more\n", len(candidates)-limit)
			break
		}
		affiliation := ""
		if len(c.Affiliations) > 0 {
			affiliation = c.Affiliations[0]
		}
		fmt.Printf("%-4d %-28s %-7.1f %-6d %s\n", i+1, util.TruncateString(c.Name, 25), c.TotalScore, c.HIndex, util.TruncateString(affiliation, 32))
	}
}

