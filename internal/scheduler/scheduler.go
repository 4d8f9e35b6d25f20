// Package scheduler drives a candidate search through rounds of term batches.
// Each round searches a batch, selects papers, extracts seeds and resolves the
// pending seeds into candidates. Between rounds the scheduler can pause and
// persist the task so a later run resumes exactly where it stopped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lamim/talentradar/internal/accum"
	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/internal/finalizer"
	"github.com/lamim/talentradar/internal/metrics"
	"github.com/lamim/talentradar/pkg/models"
)

// DefaultChunkSize is the number of terms consumed per round
const DefaultChunkSize = 5

// ErrInvalidState reports a task state or spec that cannot be driven
var ErrInvalidState = errors.New("invalid task state")

// Dependencies are the collaborators a scheduler drives.
// Store and Metrics are optional.
type Dependencies struct {
	Search       SearchProvider
	Selector     PaperSelector
	Extractor    SeedExtractor
	Orchestrator CandidateOrchestrator
	Acceptor     Acceptor
	Planner      TermPlanner

	Store   *checkpoint.Store
	Metrics *metrics.Collector
}

// Options tune a scheduler
type Options struct {
	ChunkSize           int  // Terms per round
	SearchWorkers       int  // 0 picks a width from the batch size
	CandidateWorkers    int  // 0 picks a width from the pending seed count
	EarlyStop           bool // Stop resolving seeds once TopN candidates are accepted
	CheckpointEachRound bool // Queue a checkpoint after every round
	Progress            ProgressFunc
	Now                 func() time.Time
	NewTaskID           func(now time.Time) string // Defaults to checkpoint.NewTaskID
}

// Outcome is the result of one Execute call. Exactly one of Partial and
// Final is set.
type Outcome struct {
	Status  models.TaskStatus
	Partial *models.PartialResult
	Final   *models.FinalResult
	State   *models.TaskState
}

// Scheduler runs rounds sequentially; parallelism lives inside a round
type Scheduler struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
}

// New validates the dependencies and applies option defaults
func New(deps Dependencies, opts Options, logger *slog.Logger) (*Scheduler, error) {
	switch {
	case deps.Search == nil:
		return nil, fmt.Errorf("search provider is required")
	case deps.Selector == nil:
		return nil, fmt.Errorf("paper selector is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("seed extractor is required")
	case deps.Orchestrator == nil:
		return nil, fmt.Errorf("candidate orchestrator is required")
	case deps.Acceptor == nil:
		return nil, fmt.Errorf("acceptor is required")
	case deps.Planner == nil:
		return nil, fmt.Errorf("term planner is required")
	}

	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTaskID == nil {
		opts.NewTaskID = checkpoint.NewTaskID
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "scheduler"),
	}, nil
}

// run holds the per-call state of Execute
type run struct {
	state         *models.TaskState
	acc           *accum.Set
	maxRounds     int
	roundsThisRun int
	writer        *checkpoint.AsyncWriter
	progress      *reporter
}

// Execute drives a task until it pauses or finishes. A nil resume starts a
// new task from spec; otherwise the saved state continues from its position
// and spec is ignored. maxRoundsPerRun <= 0 means no pause.
//
// If ctx is cancelled the task is persisted as paused and ctx.Err() is
// returned together with the outcome.
func (s *Scheduler) Execute(
	ctx context.Context,
	spec models.QuerySpec,
	maxRoundsPerRun int,
	resume *models.TaskState,
) (*Outcome, error) {
	r := &run{
		maxRounds: maxRoundsPerRun,
		progress:  &reporter{fn: s.opts.Progress, logger: s.logger},
	}

	if resume == nil {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		r.progress.emit(models.EventParsing, fracParsing)
		now := s.opts.Now()
		terms := s.deps.Planner.Plan(spec)
		r.state = models.NewTaskState(s.opts.NewTaskID(now), spec, terms, now)
		r.acc = accum.NewSet()
		s.logger.Info("Task created",
			"task_id", r.state.TaskID,
			"terms", len(terms),
			"chunk_size", s.opts.ChunkSize)
	} else {
		if err := checkpoint.ValidateResumable(resume); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		r.state = resume.Clone()
		r.state.Status = models.StatusRunning
		r.acc = accum.FromState(r.state)
		s.logger.Info("Task resumed",
			"task_id", r.state.TaskID,
			"pos", r.state.Pos,
			"terms", len(r.state.Terms),
			"rounds_completed", r.state.RoundsCompleted,
			"pending_seeds", r.acc.Pending.Len(),
			"candidates", r.acc.Candidates.Len())
	}

	if s.opts.CheckpointEachRound && s.deps.Store != nil {
		r.writer = checkpoint.NewAsyncWriter(s.deps.Store, 10)
	}

	for s.hasWork(r) {
		if err := ctx.Err(); err != nil {
			return s.interrupt(r, err)
		}

		r.acc.Fill(r.state)
		start := r.state.Clone()
		startRounds := r.roundsThisRun

		s.runRound(ctx, r)

		// A round cut short by cancellation is discarded; the task resumes
		// from the state it had when the round began.
		if err := ctx.Err(); err != nil {
			r.state = start
			r.acc = accum.FromState(start)
			r.roundsThisRun = startRounds
			s.deps.Metrics.IncRound(string(models.StatusPaused))
			return s.interrupt(r, err)
		}

		r.acc.Fill(r.state)
		s.deps.Metrics.SetCandidates(r.acc.Candidates.Len())

		// Pause only while terms remain; a round that consumed the last
		// batch goes straight to completion.
		if r.maxRounds > 0 && r.roundsThisRun >= r.maxRounds && r.state.Pos < len(r.state.Terms) {
			s.deps.Metrics.IncRound(string(models.StatusPaused))
			return s.pause(r), nil
		}

		if r.state.Pos < len(r.state.Terms) {
			s.deps.Metrics.IncRound(string(models.StatusRunning))
			s.queueCheckpoint(r)
		} else {
			s.deps.Metrics.IncRound(string(models.StatusFinished))
		}
	}

	return s.complete(r), nil
}

// hasWork reports whether another round is needed. Seeds left pending by an
// interrupted final round get one draining round on the next run.
func (s *Scheduler) hasWork(r *run) bool {
	if r.state.Pos < len(r.state.Terms) {
		return true
	}
	return r.roundsThisRun == 0 && r.acc.Pending.Len() > 0
}

// Finish finalizes a task immediately without running further rounds.
// state is updated in place to its finished form and persisted.
func (s *Scheduler) Finish(ctx context.Context, state *models.TaskState) (*models.FinalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: state is nil", ErrInvalidState)
	}
	if state.Pos < 0 || state.Pos > len(state.Terms) {
		return nil, fmt.Errorf("%w: position %d out of range [0, %d]", ErrInvalidState, state.Pos, len(state.Terms))
	}
	if err := state.Spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	r := &run{
		state:    state.Clone(),
		progress: &reporter{fn: s.opts.Progress, logger: s.logger},
	}
	s.logger.Info("Finishing task early",
		"task_id", r.state.TaskID,
		"pos", r.state.Pos,
		"terms", len(r.state.Terms),
		"candidates", len(r.state.Candidates))

	out := s.complete(r)
	*state = *out.State
	return out.Final, nil
}

func (s *Scheduler) queueCheckpoint(r *run) {
	if r.writer == nil {
		return
	}
	if err := r.writer.Enqueue(r.state); err != nil {
		s.logger.Warn("Failed to queue round checkpoint", "task_id", r.state.TaskID, "error", err)
	}
}

// persist flushes queued round checkpoints and saves the state synchronously.
// Queued writes are drained first so an older snapshot cannot land on top.
func (s *Scheduler) persist(r *run) {
	if r.writer != nil {
		if err := r.writer.Close(); err != nil {
			s.logger.Warn("Round checkpoint write failed", "task_id", r.state.TaskID, "error", err)
		}
		r.writer = nil
	}
	if s.deps.Store == nil {
		return
	}
	if !s.deps.Store.Save(r.state) {
		s.logger.Warn("Checkpoint not saved; a later resume will start fresh", "task_id", r.state.TaskID)
	}
}

func (s *Scheduler) pause(r *run) *Outcome {
	r.state.Status = models.StatusPaused
	r.acc.Fill(r.state)
	s.persist(r)
	r.progress.paused()

	candidates := make([]models.CandidateProfile, len(r.state.Candidates))
	for i, c := range r.state.Candidates {
		candidates[i] = c.Clone()
	}

	partial := &models.PartialResult{
		TaskID:               r.state.TaskID,
		NeedUserDecision:     true,
		RoundsCompleted:      r.state.RoundsCompleted,
		Pos:                  r.state.Pos,
		TotalTerms:           len(r.state.Terms),
		TotalCandidatesFound: len(candidates),
		CurrentCandidates:    candidates,
		Message:              pauseMessage(r.state.RoundsCompleted, len(candidates)),
	}

	s.logger.Info("Task paused",
		"task_id", r.state.TaskID,
		"pos", r.state.Pos,
		"terms", len(r.state.Terms),
		"rounds_completed", r.state.RoundsCompleted,
		"candidates", len(candidates))

	return &Outcome{Status: models.StatusPaused, Partial: partial, State: r.state}
}

func (s *Scheduler) interrupt(r *run, cause error) (*Outcome, error) {
	s.logger.Warn("Task interrupted, saving progress", "task_id", r.state.TaskID, "reason", cause)
	return s.pause(r), cause
}

func (s *Scheduler) complete(r *run) *Outcome {
	if r.acc != nil {
		r.acc.Fill(r.state)
	}

	r.progress.emit(models.EventRanking, fracRankingStart)
	final := finalizer.Finalize(r.state)
	r.progress.emit(models.EventRanking, fracRankingDone)

	r.progress.emit(models.EventFinalizing, fracFinalizing)
	r.state.Status = models.StatusFinished
	s.persist(r)
	r.progress.emit(models.EventDone, fracDone)

	s.logger.Info("Task finished",
		"task_id", r.state.TaskID,
		"rounds_completed", r.state.RoundsCompleted,
		"candidates", final.TotalCandidatesFound,
		"recommended", len(final.Recommended),
		"papers", len(final.Papers))

	return &Outcome{Status: models.StatusFinished, Final: &final, State: r.state}
}
