// Package profile resolves candidate seeds into scored profiles using the
// citation graph.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lamim/talentradar/internal/scholar"
	"github.com/lamim/talentradar/pkg/models"
)

const (
	// DefaultMaxPapers is how many of an author's papers are fetched for scoring
	DefaultMaxPapers = 20

	authorPageBase = "https://www.semanticscholar.org/author/"
)

// AuthorSource looks up author records in the citation graph
type AuthorSource interface {
	Author(ctx context.Context, id string) (*scholar.Author, error)
	AuthorPapers(ctx context.Context, id string, limit int) ([]scholar.Paper, error)
}

// Scorer evaluates a resolved profile
type Scorer interface {
	Evaluate(ctx context.Context, profile models.CandidateProfile, papers []scholar.Paper, spec models.QuerySpec) models.CandidateProfile
}

// Config configures an Orchestrator
type Config struct {
	MaxPapers int
}

// Orchestrator is the default candidate orchestrator
type Orchestrator struct {
	authors AuthorSource
	scorer  Scorer
	config  Config
	logger  *slog.Logger
}

// New creates an orchestrator
func New(authors AuthorSource, scorer Scorer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxPapers <= 0 {
		cfg.MaxPapers = DefaultMaxPapers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		authors: authors,
		scorer:  scorer,
		config:  cfg,
		logger:  logger.With("component", "profile"),
	}
}

// DiscoverAndScore fetches the seed's author record and publication list and
// scores the resulting profile. Seeds without an author id, and authors the
// citation graph does not know, are negative results.
func (o *Orchestrator) DiscoverAndScore(ctx context.Context, spec models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error) {
	id := strings.TrimSpace(seed.AuthorID)
	if id == "" {
		o.logger.Debug("Seed has no author id", "name", seed.Name)
		return nil, nil
	}

	author, err := o.authors.Author(ctx, id)
	if err != nil {
		if errors.Is(err, scholar.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching author %s: %w", id, err)
	}

	papers, err := o.authors.AuthorPapers(ctx, id, o.config.MaxPapers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, scholar.ErrNotFound) {
			o.logger.Warn("Failed to fetch author papers, scoring without them",
				"author_id", id,
				"error", err)
		}
		papers = nil
	}

	profile := Build(seed, author, papers)
	scored := o.scorer.Evaluate(ctx, profile, papers, spec)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.logger.Debug("Candidate scored",
		"name", scored.Name,
		"author_id", id,
		"h_index", scored.HIndex,
		"total_score", scored.TotalScore)
	return &scored, nil
}

// Build assembles an unscored profile from a seed and its author record.
// The seed's name wins over the graph's spelling so that identities stay
// stable across rounds.
func Build(seed models.Seed, author *scholar.Author, papers []scholar.Paper) models.CandidateProfile {
	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = author.Name
	}
	profileURL := author.URL
	if profileURL == "" {
		profileURL = authorPageBase + author.AuthorID
	}

	return models.CandidateProfile{
		Name:              name,
		AuthorID:          author.AuthorID,
		Status:            publicationStatus(papers),
		Affiliations:      append([]string(nil), author.Affiliations...),
		Homepage:          author.Homepage,
		ProfileURL:        profileURL,
		HIndex:            author.HIndex,
		PaperCount:        author.PaperCount,
		CitationCount:     author.CitationCount,
		TriggerPaperTitle: seed.PaperTitle,
		TriggerPaperURL:   seed.PaperURL,
	}
}

// publicationStatus summarizes the publication span, e.g. "Publishing since 2019 (latest 2024)"
func publicationStatus(papers []scholar.Paper) string {
	first, last := 0, 0
	for _, p := range papers {
		if p.Year <= 0 {
			continue
		}
		if first == 0 || p.Year < first {
			first = p.Year
		}
		if p.Year > last {
			last = p.Year
		}
	}
	if first == 0 {
		return ""
	}
	return fmt.Sprintf("Publishing since %d (latest %d)", first, last)
}
