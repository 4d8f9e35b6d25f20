package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lamim/talentradar/internal/api"
	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/internal/config"
	"github.com/lamim/talentradar/internal/extract"
	"github.com/lamim/talentradar/internal/judge"
	"github.com/lamim/talentradar/internal/metrics"
	"github.com/lamim/talentradar/internal/planner"
	"github.com/lamim/talentradar/internal/profile"
	"github.com/lamim/talentradar/internal/scheduler"
	"github.com/lamim/talentradar/internal/scholar"
	"github.com/lamim/talentradar/internal/search"
	"github.com/lamim/talentradar/internal/writer"
)

// app holds what every command needs: configuration, secrets, metrics and
// the console logger used before a task log exists
type app struct {
	cfg        *config.Config
	secrets    *config.Secrets
	configFile string // Empty when running on built-in defaults
	metrics    *metrics.Collector
	logger     *slog.Logger
	level      slog.Level

	metricsServer *http.Server
}

func loadApp(cmd *cobra.Command) (*app, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				fmt.Fprintf(os.Stderr, "Warning: failed to load env file: %v\n", err)
			}
		} else if verbose {
			fmt.Fprintf(os.Stderr, "Loaded env file: %s\n", envFile)
		}
	}

	a := &app{level: slog.LevelInfo}
	if verbose {
		a.level = slog.LevelDebug
	}

	var err error
	if _, statErr := os.Stat(configPath); errors.Is(statErr, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		a.cfg, a.secrets, err = config.Default()
	} else {
		a.cfg, a.secrets, err = config.Load(configPath)
		a.configFile = configPath
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a.logger = writer.NewConsoleLogger(a.level)
	a.metrics = metrics.NewCollector()
	a.startMetrics()
	return a, nil
}

func (a *app) startMetrics() {
	addr := metricsAddr
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
}

func (a *app) close() {
	if a.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to stop metrics server", "error", err)
	}
}

func (a *app) store(logger *slog.Logger) (*checkpoint.Store, error) {
	store, err := checkpoint.NewStore(a.cfg.Store.Dir, a.cfg.Store.Expiry(), logger, checkpoint.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return store, nil
}

// languageModel returns the configured main model, or nil when none is
// configured and the rule-based judges should be used
func (a *app) languageModel(logger *slog.Logger) api.LanguageModel {
	mc, ok := a.cfg.MainModel()
	if !ok {
		logger.Info("No main model configured, using rule-based scoring")
		return nil
	}
	client := api.NewClient(logger, a.metrics)
	return api.NewChatModel(client, mc, a.secrets.GetAPIKey(mc.BaseURL), a.cfg.PromptTemplates.SystemPrompt)
}

// scheduler wires the full discovery pipeline. taskID names a new task;
// it is ignored when resuming.
func (a *app) scheduler(logger *slog.Logger, store *checkpoint.Store, taskID string, progress scheduler.ProgressFunc) (*scheduler.Scheduler, error) {
	cfg := a.cfg

	searchClient := search.NewClient(search.Config{
		BaseURL:     cfg.Search.BaseURL,
		Engines:     cfg.Search.Engines,
		Pages:       cfg.Search.Pages,
		Timeout:     cfg.Search.Timeout(),
		MaxRetries:  cfg.Search.Retries(),
		MinInterval: cfg.Search.MinInterval(),
	}, nil, logger)
	if n := cfg.Search.MaxSearchesBeforeRestart; n > 0 {
		restart := search.ReadyRestart(searchClient, cfg.Search.RestartReadyTimeout())
		searchClient.UseBudget(search.NewBudget(n, restart, logger, a.metrics))
	}

	scholarClient := scholar.NewClient(scholar.Config{
		BaseURL:    cfg.Scholar.BaseURL,
		APIKey:     a.secrets.ScholarAPIKey,
		Timeout:    cfg.Scholar.Timeout(),
		RateLimit:  cfg.Scholar.RequestsPerSecond,
		MaxRetries: cfg.Scholar.MaxRetries,
	}, logger)

	model := a.languageModel(logger)

	selector := judge.NewPaperScorer(model, cfg.PromptTemplates.PaperScoring, judge.PaperConfig{
		MinScore:       cfg.Selection.MinPaperScore,
		MaxPapers:      cfg.Selection.MaxPapers,
		MaxPerDomain:   cfg.Selection.MaxPerDomain,
		BlockedDomains: cfg.Selection.BlockedDomains,
		MaxWorkers:     cfg.Scheduler.MaxFetchWorkers,
	}, logger, a.metrics)

	extractor := extract.New(scholarClient, extract.Config{
		MinMatchScore: cfg.Scholar.MinMatchScore,
		MaxWorkers:    cfg.Scheduler.MaxFetchWorkers,
	}, logger, a.metrics)

	evaluator := judge.NewEvaluator(model, cfg.PromptTemplates.CandidateEvaluation, logger)
	orchestrator := profile.New(scholarClient, evaluator, profile.Config{}, logger)
	acceptor := judge.NewDegreeMatcher(model, cfg.PromptTemplates.DegreeMatch, logger)

	termPlanner := planner.New()
	termPlanner.Venues = mergeVenues(planner.DefaultVenues, cfg.Planner.VenueAliases)
	termPlanner.MaxTerms = cfg.Planner.MaxTerms
	termPlanner.DefaultYears = cfg.Planner.DefaultYears

	opts := scheduler.Options{
		ChunkSize:           cfg.Scheduler.ChunkSize,
		SearchWorkers:       cfg.Scheduler.MaxSearchWorkers,
		CandidateWorkers:    cfg.Scheduler.MaxCandidateWorkers,
		EarlyStop:           cfg.Scheduler.EarlyStop,
		CheckpointEachRound: cfg.Scheduler.CheckpointEachRound,
		Progress:            progress,
	}
	if taskID != "" {
		opts.NewTaskID = func(time.Time) string { return taskID }
	}

	return scheduler.New(scheduler.Dependencies{
		Search:       searchClient,
		Selector:     selector,
		Extractor:    extractor,
		Orchestrator: orchestrator,
		Acceptor:     acceptor,
		Planner:      termPlanner,
		Store:        store,
		Metrics:      a.metrics,
	}, opts, logger)
}

// rounds returns the pause threshold: the flag when given, else the config
func (a *app) rounds(cmd *cobra.Command) int {
	if cmd.Flags().Changed("max-rounds") {
		return max(maxRounds, 0)
	}
	return a.cfg.Scheduler.MaxRoundsPerRun
}
