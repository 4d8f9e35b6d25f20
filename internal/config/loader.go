package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file and environment variables
func Load(configPath string) (*Config, *Secrets, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse TOML
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(&cfg)
}

// Default returns the built-in configuration with secrets from the environment
func Default() (*Config, *Secrets, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, *Secrets, error) {
	applyDefaults(cfg, time.Now())

	// Load secrets from environment
	secrets, err := LoadSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if secrets.SearXNGURL != "" {
		cfg.Search.BaseURL = secrets.SearXNGURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Additional input security validation
	if err := cfg.ValidateInputs(); err != nil {
		return nil, nil, fmt.Errorf("input validation failed: %w", err)
	}

	return cfg, secrets, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config, now time.Time) {
	// Search defaults
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "http://localhost:8888"
	}
	if len(cfg.Search.Engines) == 0 {
		cfg.Search.Engines = []string{"google", "bing", "arxiv"}
	}
	if cfg.Search.Pages == 0 {
		cfg.Search.Pages = 1
	}
	if cfg.Search.RequestsPerSecond == 0 {
		cfg.Search.RequestsPerSecond = 5
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = 20
	}
	// NOTE: In TOML, we can't distinguish 0 from unset, so:
	// - Unset (0) → defaults to 2
	// - Explicitly set to -1 → no retries
	if cfg.Search.MaxRetries == 0 {
		cfg.Search.MaxRetries = 2
	}
	if cfg.Search.MaxSearchesBeforeRestart == 0 {
		cfg.Search.MaxSearchesBeforeRestart = 10000
	}
	if cfg.Search.RestartReadyTimeoutSeconds == 0 {
		cfg.Search.RestartReadyTimeoutSeconds = 60
	}

	// Scholar defaults
	if cfg.Scholar.BaseURL == "" {
		cfg.Scholar.BaseURL = "https://api.semanticscholar.org/graph/v1"
	}
	if cfg.Scholar.RequestsPerSecond == 0 {
		cfg.Scholar.RequestsPerSecond = 1
	}
	if cfg.Scholar.TimeoutSeconds == 0 {
		cfg.Scholar.TimeoutSeconds = 10
	}
	if cfg.Scholar.MaxRetries == 0 {
		cfg.Scholar.MaxRetries = 3
	}
	if cfg.Scholar.MinMatchScore == 0 {
		cfg.Scholar.MinMatchScore = 0.80
	}

	// Scheduler defaults
	if cfg.Scheduler.ChunkSize == 0 {
		cfg.Scheduler.ChunkSize = 10
	}
	if cfg.Scheduler.MaxRoundsPerRun == 0 {
		cfg.Scheduler.MaxRoundsPerRun = 2
	}
	if cfg.Scheduler.MaxSearchWorkers == 0 {
		cfg.Scheduler.MaxSearchWorkers = 20
	}
	if cfg.Scheduler.MaxCandidateWorkers == 0 {
		cfg.Scheduler.MaxCandidateWorkers = 30
	}
	if cfg.Scheduler.MaxFetchWorkers == 0 {
		cfg.Scheduler.MaxFetchWorkers = 16
	}

	// Store defaults
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "data/search_tasks"
	}
	if cfg.Store.ExpiryHours == 0 {
		cfg.Store.ExpiryHours = 24
	}
	if cfg.Store.SweepSchedule == "" {
		cfg.Store.SweepSchedule = "@every 1h"
	}

	// Planner defaults
	if cfg.Planner.MaxTerms == 0 {
		cfg.Planner.MaxTerms = 120
	}
	if len(cfg.Planner.DefaultYears) == 0 {
		y := now.Year()
		cfg.Planner.DefaultYears = []int{y, y - 1, y + 1}
	}

	// Selection defaults
	if cfg.Selection.MinPaperScore == 0 {
		cfg.Selection.MinPaperScore = 6
	}
	if cfg.Selection.MaxPapers == 0 {
		cfg.Selection.MaxPapers = 30
	}
	if cfg.Selection.MaxPerDomain == 0 {
		cfg.Selection.MaxPerDomain = 8
	}

	// Query defaults
	if cfg.Query.TopN == 0 {
		cfg.Query.TopN = 10
	}

	// Apply defaults for each model
	for name, model := range cfg.Models {
		if model.Temperature == 0 {
			model.Temperature = 0.3
		}
		if model.TopP == 0 {
			model.TopP = 1.0
		}
		if model.MaxOutputTokens == 0 {
			model.MaxOutputTokens = 1024
		}
		if model.ContextSize == 0 {
			model.ContextSize = 16384
		}
		if model.RateLimitPerMinute == 0 {
			model.RateLimitPerMinute = 60
		}
		if model.MaxRetries == 0 {
			model.MaxRetries = 3
		}
		if model.HTTPTimeoutSeconds == 0 {
			model.HTTPTimeoutSeconds = 120
		}
		cfg.Models[name] = model
	}

	// Apply default templates if not provided
	if cfg.PromptTemplates.PaperScoring == "" {
		cfg.PromptTemplates.PaperScoring = GetDefaultPaperScoringTemplate()
	}
	if cfg.PromptTemplates.DegreeMatch == "" {
		cfg.PromptTemplates.DegreeMatch = GetDefaultDegreeMatchTemplate()
	}
	if cfg.PromptTemplates.CandidateEvaluation == "" {
		cfg.PromptTemplates.CandidateEvaluation = GetDefaultCandidateEvaluationTemplate()
	}
	if cfg.PromptTemplates.SystemPrompt == "" {
		cfg.PromptTemplates.SystemPrompt = GetDefaultSystemPrompt()
	}

	// Output defaults
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
}
