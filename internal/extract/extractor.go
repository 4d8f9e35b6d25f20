// Package extract turns selected papers into candidate seeds. Each paper page
// is fetched for its title, matched against Semantic Scholar and mined for its
// first named author.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lamim/talentradar/internal/metrics"
	"github.com/lamim/talentradar/internal/pool"
	"github.com/lamim/talentradar/internal/scholar"
	"github.com/lamim/talentradar/pkg/models"
)

const (
	// DefaultFetchTimeout is the per-page fetch timeout
	DefaultFetchTimeout = 15 * time.Second
	// DefaultMaxWorkers caps concurrent page fetches
	DefaultMaxWorkers = 16

	maxPageBytes = 4 << 20
	userAgent    = "Mozilla/5.0 (compatible; talentradar/1.0)"
)

// Matcher resolves a paper title to its citation-graph record
type Matcher interface {
	MatchPaper(ctx context.Context, title string) (*scholar.Match, error)
}

// Config configures an Extractor
type Config struct {
	MinMatchScore float64
	MaxWorkers    int
	FetchTimeout  time.Duration
}

// Extractor is the default seed extractor
type Extractor struct {
	httpClient *http.Client
	matcher    Matcher
	config     Config
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// New creates an extractor. m may be nil.
func New(matcher Matcher, cfg Config, logger *slog.Logger, m *metrics.Collector) *Extractor {
	if cfg.MinMatchScore <= 0 {
		cfg.MinMatchScore = scholar.DefaultMinMatchScore
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		matcher:    matcher,
		config:     cfg,
		logger:     logger.With("component", "extract"),
		metrics:    m,
	}
}

// Extract returns at most one seed per paper, in paper order, deduplicated by
// candidate identity. Failures of single papers are logged and skipped.
func (e *Extractor) Extract(ctx context.Context, _ models.QuerySpec, papers []models.ScoredPaper) ([]models.Seed, error) {
	if len(papers) == 0 {
		return nil, nil
	}

	indices := make([]int, len(papers))
	for i := range indices {
		indices[i] = i
	}

	width := pool.Width(len(papers), pool.IOBound, e.config.MaxWorkers)
	p := pool.New("extract", width, func(ctx context.Context, i int) (*models.Seed, error) {
		return e.seedFor(ctx, papers[i])
	}, pool.WithLogger(e.logger), pool.WithMetrics(e.metrics))

	found := make([]*models.Seed, len(papers))
	for o := range p.SubmitAll(ctx, indices) {
		if o.Err != nil {
			if !errors.Is(o.Err, scholar.ErrNotFound) {
				e.logger.Warn("Seed extraction failed", "url", papers[o.Item].URL, "error", o.Err)
			}
			continue
		}
		found[o.Item] = o.Result
	}

	seen := make(map[string]bool)
	var seeds []models.Seed
	for _, s := range found {
		if s == nil || seen[s.Identity()] {
			continue
		}
		seen[s.Identity()] = true
		seeds = append(seeds, *s)
	}

	if err := ctx.Err(); err != nil {
		return seeds, err
	}
	return seeds, nil
}

// seedFor resolves one paper. A nil seed with a nil error means the paper
// has no usable author.
func (e *Extractor) seedFor(ctx context.Context, paper models.ScoredPaper) (*models.Seed, error) {
	title, err := e.PageTitle(ctx, paper.URL)
	if err != nil || title == "" {
		if err != nil {
			e.logger.Debug("Page fetch failed, using result title", "url", paper.URL, "error", err)
		}
		title = paper.Title
	}
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}

	match, err := e.matcher.MatchPaper(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", title, err)
	}
	if match.MatchScore < e.config.MinMatchScore {
		e.logger.Debug("Title match below threshold",
			"title", title,
			"matched", match.Title,
			"score", match.MatchScore)
		return nil, nil
	}

	for _, a := range match.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		paperTitle := match.Title
		if paperTitle == "" {
			paperTitle = title
		}
		return &models.Seed{
			Name:       name,
			AuthorID:   a.AuthorID,
			PaperTitle: paperTitle,
			PaperURL:   paper.URL,
		}, nil
	}
	return nil, nil
}

// PageTitle fetches an HTML page and returns its best title candidate.
// Non-HTML responses yield an empty title.
func (e *Extractor) PageTitle(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return TitleFromDocument(doc), nil
}

// TitleFromDocument picks the citation title, then the OpenGraph title, then
// the document title
func TitleFromDocument(doc *goquery.Document) string {
	selectors := []string{
		"meta[name='citation_title']",
		"meta[property='og:title']",
	}
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = clean(v); v != "" {
				return v
			}
		}
	}
	return clean(doc.Find("title").First().Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
