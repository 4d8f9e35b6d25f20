// Package search queries a SearXNG instance through its JSON API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lamim/talentradar/pkg/models"
)

const (
	// DefaultBaseURL is the default SearXNG endpoint
	DefaultBaseURL = "http://localhost:8888"
	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 35 * time.Second
	// DefaultMaxRetries is the default number of retries on retryable statuses
	DefaultMaxRetries = 2
	// DefaultRetryDelay is the base delay for exponential backoff
	DefaultRetryDelay = 2 * time.Second
	// DefaultMinInterval is the default minimum spacing between requests
	DefaultMinInterval = 500 * time.Millisecond
	// DefaultResultsPerPage caps the results kept from each page
	DefaultResultsPerPage = 10

	userAgent = "talentradar/1.0"
)

// DefaultEngines are the engines used for paper search
var DefaultEngines = []string{"google", "bing", "arxiv"}

// Config configures a SearXNG client
type Config struct {
	BaseURL        string
	Engines        []string
	Pages          int
	ResultsPerPage int
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MinInterval    time.Duration // Spacing between requests, shared by all callers
}

// Client searches SearXNG. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	budget     *Budget
	config     Config
	logger     *slog.Logger
}

// NewClient creates a client. budget may be nil.
func NewClient(cfg Config, budget *Budget, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Engines) == 0 {
		cfg.Engines = DefaultEngines
	}
	if cfg.Pages < 1 {
		cfg.Pages = 1
	}
	if cfg.ResultsPerPage < 1 {
		cfg.ResultsPerPage = DefaultResultsPerPage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		budget:     budget,
		config:     cfg,
		logger:     logger.With("component", "search"),
	}
}

// UseBudget attaches a search budget. Call before the client is shared.
func (c *Client) UseBudget(b *Budget) {
	c.budget = b
}

// Search runs term against every configured page and returns http(s)
// results, deduplicated by URL and tagged with the term
func (c *Client) Search(ctx context.Context, term string) ([]models.SearchResult, error) {
	if c.budget != nil {
		if err := c.budget.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []models.SearchResult
	var lastErr error

	for page := 1; page <= c.config.Pages; page++ {
		rows, err := c.fetchPage(ctx, term, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("Search page failed", "term", term, "page", page, "error", err)
			continue
		}

		for i, row := range rows {
			if i >= c.config.ResultsPerPage {
				break
			}
			u := strings.TrimSpace(row.URL)
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				continue
			}
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, models.SearchResult{
				URL:     u,
				Title:   strings.TrimSpace(row.Title),
				Snippet: strings.TrimSpace(row.Content),
				Term:    term,
			})
		}
	}

	if c.budget != nil {
		c.budget.Record(ctx)
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	c.logger.Debug("Search complete", "term", term, "results", len(out))
	return out, nil
}

// fetchPage performs one page request with retries on retryable statuses
func (c *Client) fetchPage(ctx context.Context, term string, page int) ([]resultRow, error) {
	endpoint, err := c.searchURL(term, page)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryDelay
			c.logger.Debug("Retrying search", "term", term, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		rows, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if se, ok := err.(*StatusError); !ok || !se.Retryable() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) searchURL(term string, page int) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	u := base.JoinPath("search")

	q := u.Query()
	q.Set("q", term)
	q.Set("format", "json")
	q.Set("engines", strings.Join(c.config.Engines, ","))
	q.Set("categories", "general")
	q.Set("pageno", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]resultRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return payload.Results, nil
}

type response struct {
	Results []resultRow `json:"results"`
}

type resultRow struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// StatusError is a non-200 response from the search backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search backend returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
