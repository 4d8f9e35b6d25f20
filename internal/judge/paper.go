package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/lamim/talentradar/internal/api"
	"github.com/lamim/talentradar/internal/metrics"
	"github.com/lamim/talentradar/internal/pool"
	"github.com/lamim/talentradar/internal/util"
	"github.com/lamim/talentradar/pkg/models"
)

const (
	// TopTierScore is the lowest score that puts a paper in relevance tier 1
	TopTierScore = 9

	defaultMinPaperScore = 6
	defaultMaxPapers     = 30
	defaultMaxPerDomain  = 8
	defaultScoreWorkers  = 16
)

var (
	yearPattern = regexp.MustCompile(`20\d{2}`)

	// Hosts that serve full paper records
	paperHosts = []string{
		"arxiv.org",
		"openreview.net",
		"aclanthology.org",
		"proceedings.neurips.cc",
		"proceedings.mlr.press",
		"dl.acm.org",
		"ieeexplore.ieee.org",
		"semanticscholar.org",
	}
)

// PaperConfig configures a PaperScorer
type PaperConfig struct {
	MinScore       int
	MaxPapers      int
	MaxPerDomain   int
	BlockedDomains []string
	MaxWorkers     int
}

// PaperScorer rates search results and keeps the best ones as papers
type PaperScorer struct {
	model    api.LanguageModel
	template string
	config   PaperConfig
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewPaperScorer creates a scorer. model and m may be nil.
func NewPaperScorer(model api.LanguageModel, template string, cfg PaperConfig, logger *slog.Logger, m *metrics.Collector) *PaperScorer {
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinPaperScore
	}
	if cfg.MaxPapers <= 0 {
		cfg.MaxPapers = defaultMaxPapers
	}
	if cfg.MaxPerDomain <= 0 {
		cfg.MaxPerDomain = defaultMaxPerDomain
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultScoreWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaperScorer{
		model:    model,
		template: template,
		config:   cfg,
		logger:   logger.With("component", "paper_scorer"),
		metrics:  m,
	}
}

// Select scores results and returns the papers worth mining, best first.
// Blocked domains and non-http URLs are dropped before scoring.
func (s *PaperScorer) Select(ctx context.Context, spec models.QuerySpec, results []models.SearchResult) ([]models.ScoredPaper, error) {
	candidates := s.filter(results)
	if len(candidates) == 0 {
		return nil, nil
	}

	width := pool.Width(len(candidates), pool.IOBound, s.config.MaxWorkers)
	p := pool.New("score", width, func(ctx context.Context, r models.SearchResult) (int, error) {
		return s.Score(ctx, spec, r), nil
	}, pool.WithLogger(s.logger), pool.WithMetrics(s.metrics))

	scores := make(map[string]int, len(candidates))
	for o := range p.SubmitAll(ctx, candidates) {
		if o.Err != nil {
			s.logger.Warn("Scoring failed", "url", o.Item.URL, "error", o.Err)
			continue
		}
		scores[o.Item.URL] = o.Result
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := make([]models.SearchResult, 0, len(candidates))
	for _, r := range candidates {
		if score, ok := scores[r.URL]; ok && score >= s.config.MinScore {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return scores[kept[i].URL] > scores[kept[j].URL]
	})

	perDomain := make(map[string]int)
	papers := make([]models.ScoredPaper, 0, len(kept))
	for _, r := range kept {
		if len(papers) >= s.config.MaxPapers {
			break
		}
		domain := domainOf(r.URL)
		if perDomain[domain] >= s.config.MaxPerDomain {
			continue
		}
		perDomain[domain]++

		score := scores[r.URL]
		tier := 0
		if score >= TopTierScore {
			tier = 1
		}
		papers = append(papers, models.ScoredPaper{
			URL:                  r.URL,
			Title:                r.Title,
			Abstract:             r.Snippet,
			Score:                score,
			RelevanceTier:        tier,
			CompletenessScore:    Completeness(r.Title, r.Snippet, r.URL),
			AssociatedCandidates: []string{},
		})
	}

	s.logger.Debug("Papers selected",
		"results", len(results),
		"scored", len(scores),
		"selected", len(papers))
	return papers, nil
}

// filter drops blocked, non-http and duplicate URLs
func (s *PaperScorer) filter(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		lower := strings.ToLower(r.URL)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if seen[r.URL] || s.blocked(domainOf(r.URL)) {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func (s *PaperScorer) blocked(host string) bool {
	for _, d := range s.config.BlockedDomains {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}

// Score rates a single result from 1 to 10. Model failures fall back to
// HeuristicScore.
func (s *PaperScorer) Score(ctx context.Context, spec models.QuerySpec, r models.SearchResult) int {
	answer, err := ask(ctx, s.model, s.template, map[string]any{
		"Keywords":      strings.Join(spec.Keywords, ", "),
		"ResearchField": spec.ResearchField,
		"Venues":        strings.Join(spec.Venues, ", "),
		"Title":         r.Title,
		"URL":           r.URL,
		"Snippet":       util.TruncateString(r.Snippet, 1000),
	})
	if err == nil {
		score, perr := parseScore(answer)
		if perr == nil {
			return score
		}
		err = perr
	}
	if !errors.Is(err, ErrNoModel) {
		s.logger.Debug("Model scoring failed, using heuristic", "url", r.URL, "error", err)
	}
	return HeuristicScore(spec, r)
}

func parseScore(answer string) (int, error) {
	var resp struct {
		Score *float64 `json:"score"`
	}
	if err := util.DecodeJSON(answer, &resp); err != nil {
		return 0, err
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("score missing in %q", util.TruncateString(answer, 200))
	}
	return int(clamp(math.Round(*resp.Score), 1, 10)), nil
}

// HeuristicScore rates a result by keyword and venue overlap with the query
// and by whether it is hosted on a known paper site
func HeuristicScore(spec models.QuerySpec, r models.SearchResult) int {
	text := r.Title + " " + r.Snippet
	score := 3.0
	if len(spec.Keywords) > 0 {
		score += 5 * keywordOverlap(text, spec.Keywords)
	} else {
		score += 2.5
	}
	if keywordOverlap(text, spec.Venues) > 0 {
		score++
	}
	if isPaperURL(r.URL) {
		score++
	}
	return int(clamp(math.Round(score), 1, 10))
}

// Completeness rates how well-formed a result is as a paper record, from 0
// to 10: a real title, a substantial abstract, a year and a paper host.
func Completeness(title, abstract, rawURL string) float64 {
	var c float64
	if len(title) >= 20 {
		c += 2
	}
	switch n := len(abstract); {
	case n >= 300:
		c += 3
	case n >= 150:
		c += 2
	case n >= 50:
		c++
	}
	if yearPattern.MatchString(title) {
		c += 0.5
	}
	if isPaperURL(rawURL) {
		c++
	}
	if strings.HasSuffix(strings.ToLower(strings.SplitN(rawURL, "?", 2)[0]), ".pdf") {
		c++
	}
	return clamp(c, 0, 10)
}

func isPaperURL(rawURL string) bool {
	host := domainOf(rawURL)
	for _, d := range paperHosts {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}
