package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lamim/talentradar/pkg/models"
)

// Config represents the complete application configuration
type Config struct {
	Search          SearchConfig           `toml:"search"`
	Scholar         ScholarConfig          `toml:"scholar"`
	Scheduler       SchedulerConfig        `toml:"scheduler"`
	Store           StoreConfig            `toml:"store"`
	Planner         PlannerConfig          `toml:"planner"`
	Selection       SelectionConfig        `toml:"selection"`
	Query           models.QuerySpec       `toml:"query"` // Default query, overridden by CLI flags
	Models          map[string]ModelConfig `toml:"models"`
	PromptTemplates PromptTemplates        `toml:"prompt_templates"`
	Output          OutputConfig           `toml:"output"`
	Metrics         MetricsConfig          `toml:"metrics"`
}

// SearchConfig holds SearXNG settings
type SearchConfig struct {
	BaseURL                    string   `toml:"base_url"`
	Engines                    []string `toml:"engines"`
	Pages                      int      `toml:"pages"`
	RequestsPerSecond          float64  `toml:"requests_per_second"`
	TimeoutSeconds             int      `toml:"timeout_seconds"`
	MaxRetries                 int      `toml:"max_retries"`                   // 0 = default (2), -1 = no retries
	MaxSearchesBeforeRestart   int      `toml:"max_searches_before_restart"`   // 0 disables the search budget
	RestartReadyTimeoutSeconds int      `toml:"restart_ready_timeout_seconds"` // How long to wait for the backend after a restart
}

// ScholarConfig holds Semantic Scholar settings
type ScholarConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxRetries        int     `toml:"max_retries"`
	MinMatchScore     float64 `toml:"min_match_score"` // Lowest title match score accepted (0-1)
}

// SchedulerConfig holds round scheduling settings
type SchedulerConfig struct {
	ChunkSize           int  `toml:"chunk_size"`         // Terms consumed per round
	MaxRoundsPerRun     int  `toml:"max_rounds_per_run"` // Rounds before pausing for a user decision
	MaxSearchWorkers    int  `toml:"max_search_workers"`
	MaxCandidateWorkers int  `toml:"max_candidate_workers"`
	MaxFetchWorkers     int  `toml:"max_fetch_workers"`
	EarlyStop           bool `toml:"early_stop"`            // Cancel remaining seeds once top_n candidates are found
	CheckpointEachRound bool `toml:"checkpoint_each_round"` // Persist asynchronously after every round
}

// StoreConfig holds checkpoint store settings
type StoreConfig struct {
	Dir           string `toml:"dir"`
	ExpiryHours   int    `toml:"expiry_hours"`
	SweepSchedule string `toml:"sweep_schedule"` // Cron spec or descriptor for `task sweep`
}

// PlannerConfig holds term planning settings
type PlannerConfig struct {
	MaxTerms     int                 `toml:"max_terms"`
	DefaultYears []int               `toml:"default_years"` // Empty means previous, current and next year
	VenueAliases map[string][]string `toml:"venue_aliases"` // Overrides or extends the built-in venue table
}

// SelectionConfig holds paper selection settings
type SelectionConfig struct {
	MinPaperScore  int      `toml:"min_paper_score"` // 1-10
	MaxPapers      int      `toml:"max_papers"`
	MaxPerDomain   int      `toml:"max_per_domain"`
	BlockedDomains []string `toml:"blocked_domains"`
}

// ModelConfig represents configuration for a single model endpoint
type ModelConfig struct {
	BaseURL            string  `toml:"base_url"`
	ModelName          string  `toml:"model_name"`
	Temperature        float64 `toml:"temperature"`
	TopP               float64 `toml:"top_p"`
	MaxOutputTokens    int     `toml:"max_output_tokens"`
	ContextSize        int     `toml:"context_size"`
	RateLimitPerMinute int     `toml:"rate_limit_per_minute"`
	MaxRetries         int     `toml:"max_retries"`          // Optional: max retry attempts (default 3, -1 = none)
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"` // Optional: HTTP request timeout (default 120)
	UseJSONMode        bool    `toml:"use_json_mode"`        // Request a JSON object response
}

// PromptTemplates holds all customizable prompt templates
type PromptTemplates struct {
	PaperScoring        string `toml:"paper_scoring"`
	DegreeMatch         string `toml:"degree_match"`
	CandidateEvaluation string `toml:"candidate_evaluation"`
	SystemPrompt        string `toml:"system_prompt"` // Optional system prompt for every model call
}

// OutputConfig holds result output settings
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `toml:"addr"` // Empty disables the endpoint
}

// Secrets holds sensitive credentials loaded from environment variables
type Secrets struct {
	APIKeys       map[string]string
	ScholarAPIKey string
	SearXNGURL    string
}

const (
	// MaxChunkSize is the maximum allowed terms per round
	MaxChunkSize = 1000
	// MaxWorkers is the maximum allowed width of any pool
	MaxWorkers = 1024
	// MaxSearchPages is the maximum pages fetched per search term
	MaxSearchPages = 10
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Search.BaseURL == "" {
		return fmt.Errorf("search.base_url is required")
	}
	if c.Search.Pages < 1 || c.Search.Pages > MaxSearchPages {
		return fmt.Errorf("search.pages must be between 1 and %d (got %d)", MaxSearchPages, c.Search.Pages)
	}
	if c.Search.RequestsPerSecond <= 0 {
		return fmt.Errorf("search.requests_per_second must be positive")
	}
	if c.Search.MaxSearchesBeforeRestart < 0 {
		return fmt.Errorf("search.max_searches_before_restart must not be negative")
	}

	if c.Scholar.RequestsPerSecond <= 0 {
		return fmt.Errorf("scholar.requests_per_second must be positive")
	}
	if c.Scholar.MinMatchScore <= 0 || c.Scholar.MinMatchScore > 1 {
		return fmt.Errorf("scholar.min_match_score must be in (0, 1] (got %.2f)", c.Scholar.MinMatchScore)
	}

	if c.Scheduler.ChunkSize < 1 {
		return fmt.Errorf("scheduler.chunk_size must be at least 1")
	}
	if c.Scheduler.ChunkSize > MaxChunkSize {
		return fmt.Errorf("scheduler.chunk_size must not exceed %d (got %d)", MaxChunkSize, c.Scheduler.ChunkSize)
	}
	if c.Scheduler.MaxRoundsPerRun < 1 {
		return fmt.Errorf("scheduler.max_rounds_per_run must be at least 1")
	}
	workers := []struct {
		name  string
		value int
	}{
		{"max_search_workers", c.Scheduler.MaxSearchWorkers},
		{"max_candidate_workers", c.Scheduler.MaxCandidateWorkers},
		{"max_fetch_workers", c.Scheduler.MaxFetchWorkers},
	}
	for _, w := range workers {
		if w.value < 1 || w.value > MaxWorkers {
			return fmt.Errorf("scheduler.%s must be between 1 and %d (got %d)", w.name, MaxWorkers, w.value)
		}
	}

	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	if c.Store.ExpiryHours < 1 {
		return fmt.Errorf("store.expiry_hours must be at least 1")
	}
	if c.Store.SweepSchedule == "" {
		return fmt.Errorf("store.sweep_schedule is required")
	}

	if c.Planner.MaxTerms < 1 {
		return fmt.Errorf("planner.max_terms must be at least 1")
	}
	for _, y := range c.Planner.DefaultYears {
		if y < 1900 || y > 2200 {
			return fmt.Errorf("planner.default_years contains an invalid year: %d", y)
		}
	}

	if c.Selection.MinPaperScore < 1 || c.Selection.MinPaperScore > 10 {
		return fmt.Errorf("selection.min_paper_score must be between 1 and 10 (got %d)", c.Selection.MinPaperScore)
	}
	if c.Selection.MaxPapers < 1 {
		return fmt.Errorf("selection.max_papers must be at least 1")
	}
	if c.Selection.MaxPerDomain < 1 {
		return fmt.Errorf("selection.max_per_domain must be at least 1")
	}

	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	// The language model is optional; without it scoring falls back to rules
	if mainModel, ok := c.Models["main"]; ok {
		if err := validateModelConfig("main", mainModel); err != nil {
			return err
		}
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

func validateModelConfig(name string, mc ModelConfig) error {
	if mc.BaseURL == "" {
		return fmt.Errorf("models.%s.base_url is required", name)
	}
	if mc.ModelName == "" {
		return fmt.Errorf("models.%s.model_name is required", name)
	}
	if mc.Temperature < 0 || mc.Temperature > 2 {
		return fmt.Errorf("models.%s.temperature must be between 0 and 2", name)
	}
	if mc.TopP < 0 || mc.TopP > 1 {
		return fmt.Errorf("models.%s.top_p must be between 0 and 1", name)
	}
	if mc.MaxOutputTokens < 1 {
		return fmt.Errorf("models.%s.max_output_tokens must be at least 1", name)
	}
	if mc.ContextSize < 1 {
		return fmt.Errorf("models.%s.context_size must be at least 1", name)
	}
	if mc.RateLimitPerMinute < 1 {
		return fmt.Errorf("models.%s.rate_limit_per_minute must be at least 1", name)
	}
	if mc.MaxOutputTokens > mc.ContextSize {
		return fmt.Errorf("models.%s.max_output_tokens (%d) must not exceed context_size (%d)", name, mc.MaxOutputTokens, mc.ContextSize)
	}
	return nil
}

// MainModel returns the main model configuration, if one is configured
func (c *Config) MainModel() (ModelConfig, bool) {
	mc, ok := c.Models["main"]
	return mc, ok
}

// Timeout returns the search request timeout
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MinInterval returns the spacing between search requests
func (s SearchConfig) MinInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.RequestsPerSecond)
}

// RestartReadyTimeout returns how long a budget restart waits for the backend
func (s SearchConfig) RestartReadyTimeout() time.Duration {
	return time.Duration(s.RestartReadyTimeoutSeconds) * time.Second
}

// Retries returns the effective retry count
func (s SearchConfig) Retries() int {
	return max(s.MaxRetries, 0)
}

// Timeout returns the Semantic Scholar request timeout
func (s ScholarConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Expiry returns the checkpoint expiry
func (s StoreConfig) Expiry() time.Duration {
	return time.Duration(s.ExpiryHours) * time.Hour
}

// HTTPTimeout returns the model request timeout
func (m ModelConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

// Retries returns the effective retry count
func (m ModelConfig) Retries() int {
	return max(m.MaxRetries, 0)
}

// LoadSecrets loads sensitive credentials from environment variables
func LoadSecrets() (*Secrets, error) {
	secrets := &Secrets{
		APIKeys: make(map[string]string),
	}

	// Load generic API key (provider-agnostic)
	if key := os.Getenv("API_KEY"); key != "" {
		secrets.APIKeys["generic"] = key
	}

	// Load provider-specific API keys (optional, override generic)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		secrets.APIKeys["openai"] = key
	}
	if key := os.Getenv("NVIDIA_API_KEY"); key != "" {
		secrets.APIKeys["nvidia"] = key
	}
	if key := os.Getenv("TOGETHER_API_KEY"); key != "" {
		secrets.APIKeys["together"] = key
	}

	secrets.ScholarAPIKey = os.Getenv("SEMANTIC_SCHOLAR_API_KEY")
	secrets.SearXNGURL = strings.TrimSpace(os.Getenv("SEARXNG_URL"))

	return secrets, nil
}

// GetAPIKey returns the API key for a given base URL
func (s *Secrets) GetAPIKey(baseURL string) string {
	provider := GetProviderName(baseURL)
	if key := s.APIKeys[provider]; key != "" {
		return key
	}

	// Fall back to generic API_KEY for any OpenAI-compatible provider
	if key := s.APIKeys["generic"]; key != "" {
		return key
	}

	// Local servers commonly run without auth
	return ""
}

// GetProviderName extracts a provider name from a base URL
func GetProviderName(baseURL string) string {
	switch {
	case strings.Contains(baseURL, "openai.com"):
		return "openai"
	case strings.Contains(baseURL, "nvidia.com"):
		return "nvidia"
	case strings.Contains(baseURL, "together.xyz"), strings.Contains(baseURL, "together.ai"):
		return "together"
	}
	// For localhost or unknown providers, use the full base URL as provider name
	return baseURL
}
