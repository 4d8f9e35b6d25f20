// Package scholar is a small client for the Semantic Scholar Graph API.
package scholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	// DefaultRateLimit is the default rate limit in requests per second
	DefaultRateLimit = 1.0
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the default number of attempts per request
	DefaultMaxRetries = 3
	// DefaultMinMatchScore is the lowest title match score treated as a hit
	DefaultMinMatchScore = 0.80

	initialBackoff = time.Second
	maxBackoff     = 8 * time.Second

	apiKeyHeader = "x-api-key"
	userAgent    = "talentradar/1.0"

	matchFields  = "title,authors,url,year,venue"
	authorFields = "name,aliases,affiliations,homepage,paperCount,citationCount,hIndex,url"
	paperFields  = "title,year,venue,citationCount,url,abstract"
)

// ErrNotFound is returned when the API has no record for the request
var ErrNotFound = errors.New("not found")

// Config contains configuration options for the client
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64 // Requests per second
	MaxRetries int
}

// Client queries Semantic Scholar. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
	logger     *slog.Logger

	backoffStart time.Duration
	backoffCap   time.Duration
}

// NewClient creates a client with defaults applied
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		config:       cfg,
		logger:       logger.With("component", "scholar"),
		backoffStart: initialBackoff,
		backoffCap:   maxBackoff,
	}
}

// AuthorRef is an author as listed on a paper
type AuthorRef struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// Match is the best title match for a paper
type Match struct {
	PaperID    string      `json:"paperId"`
	Title      string      `json:"title"`
	MatchScore float64     `json:"matchScore"`
	Year       int         `json:"year"`
	Venue      string      `json:"venue"`
	URL        string      `json:"url"`
	Authors    []AuthorRef `json:"authors"`
}

// Author is an author profile
type Author struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	Aliases       []string `json:"aliases"`
	Affiliations  []string `json:"affiliations"`
	Homepage      string   `json:"homepage"`
	PaperCount    int      `json:"paperCount"`
	CitationCount int      `json:"citationCount"`
	HIndex        int      `json:"hIndex"`
	URL           string   `json:"url"`
}

// Paper is a paper listed on an author's profile
type Paper struct {
	Title         string `json:"title"`
	Year          int    `json:"year"`
	Venue         string `json:"venue"`
	CitationCount int    `json:"citationCount"`
	URL           string `json:"url"`
	Abstract      string `json:"abstract"`
}

var (
	dashRun  = regexp.MustCompile(`[-–—]+`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeTitle replaces dash runs with spaces and collapses whitespace
func NormalizeTitle(title string) string {
	title = dashRun.ReplaceAllString(title, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(title, " "))
}

// MatchPaper finds the paper whose title best matches title
func (c *Client) MatchPaper(ctx context.Context, title string) (*Match, error) {
	q := NormalizeTitle(title)
	if q == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("fields", matchFields)

	var payload struct {
		Data []Match `json:"data"`
	}
	if err := c.get(ctx, "/paper/search/match", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, ErrNotFound
	}
	return &payload.Data[0], nil
}

// Author fetches an author profile by id
func (c *Client) Author(ctx context.Context, id string) (*Author, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	params := url.Values{}
	params.Set("fields", authorFields)

	var a Author
	if err := c.get(ctx, "/author/"+url.PathEscape(id), params, &a); err != nil {
		return nil, err
	}
	if a.AuthorID == "" {
		a.AuthorID = id
	}
	return &a, nil
}

// AuthorPapers lists an author's papers, most cited first
func (c *Client) AuthorPapers(ctx context.Context, id string, limit int) ([]Paper, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("fields", paperFields)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "citationCount")

	var payload struct {
		Data []Paper `json:"data"`
	}
	if err := c.get(ctx, "/author/"+url.PathEscape(id)+"/papers", params, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// get performs a GET with rate limiting. 429 and 5xx responses are retried
// with a doubling backoff capped at 8s; 400 and 404 map to ErrNotFound.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path + "?" + params.Encode()

	backoff := c.backoffStart
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.backoffCap)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		status, body, err := c.do(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		case status == http.StatusBadRequest || status == http.StatusNotFound:
			return ErrNotFound
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("semantic scholar returned status %d", status)
			c.logger.Debug("Retrying request", "path", path, "status", status, "attempt", attempt+1)
		default:
			return fmt.Errorf("semantic scholar returned status %d: %s", status, truncate(string(body), 200))
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.config.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
