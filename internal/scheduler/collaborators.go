package scheduler

import (
	"context"

	"github.com/lamim/talentradar/pkg/models"
)

// SearchProvider runs a single search term
type SearchProvider interface {
	Search(ctx context.Context, term string) ([]models.SearchResult, error)
}

// PaperSelector scores search results and keeps the ones worth mining
type PaperSelector interface {
	Select(ctx context.Context, spec models.QuerySpec, results []models.SearchResult) ([]models.ScoredPaper, error)
}

// SeedExtractor fetches selected papers and derives candidate seeds from them
type SeedExtractor interface {
	Extract(ctx context.Context, spec models.QuerySpec, papers []models.ScoredPaper) ([]models.Seed, error)
}

// CandidateOrchestrator resolves a seed into a scored profile.
// A nil profile with a nil error is a negative result.
type CandidateOrchestrator interface {
	DiscoverAndScore(ctx context.Context, spec models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error)
}

// Acceptor decides whether a resolved profile belongs in the result
type Acceptor interface {
	Accept(ctx context.Context, profile models.CandidateProfile, spec models.QuerySpec) bool
}

// TermPlanner expands a spec into the ordered list of search terms
type TermPlanner interface {
	Plan(spec models.QuerySpec) []string
}

// SearchFunc adapts a function to SearchProvider
type SearchFunc func(ctx context.Context, term string) ([]models.SearchResult, error)

func (f SearchFunc) Search(ctx context.Context, term string) ([]models.SearchResult, error) {
	return f(ctx, term)
}

// SelectFunc adapts a function to PaperSelector
type SelectFunc func(ctx context.Context, spec models.QuerySpec, results []models.SearchResult) ([]models.ScoredPaper, error)

func (f SelectFunc) Select(ctx context.Context, spec models.QuerySpec, results []models.SearchResult) ([]models.ScoredPaper, error) {
	return f(ctx, spec, results)
}

// ExtractFunc adapts a function to SeedExtractor
type ExtractFunc func(ctx context.Context, spec models.QuerySpec, papers []models.ScoredPaper) ([]models.Seed, error)

func (f ExtractFunc) Extract(ctx context.Context, spec models.QuerySpec, papers []models.ScoredPaper) ([]models.Seed, error) {
	return f(ctx, spec, papers)
}

// DiscoverFunc adapts a function to CandidateOrchestrator
type DiscoverFunc func(ctx context.Context, spec models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error)

func (f DiscoverFunc) DiscoverAndScore(ctx context.Context, spec models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error) {
	return f(ctx, spec, seed)
}

// AcceptFunc adapts a function to Acceptor
type AcceptFunc func(ctx context.Context, profile models.CandidateProfile, spec models.QuerySpec) bool

func (f AcceptFunc) Accept(ctx context.Context, profile models.CandidateProfile, spec models.QuerySpec) bool {
	return f(ctx, profile, spec)
}

// AcceptAll accepts every resolved profile
var AcceptAll = AcceptFunc(func(context.Context, models.CandidateProfile, models.QuerySpec) bool { return true })

// PlanFunc adapts a function to TermPlanner
type PlanFunc func(spec models.QuerySpec) []string

func (f PlanFunc) Plan(spec models.QuerySpec) []string {
	return f(spec)
}

// ProgressFunc observes coarse milestones. It never influences control flow.
type ProgressFunc func(event string, fraction float64)
