package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/lamim/talentradar/internal/api"
	"github.com/lamim/talentradar/internal/scholar"
	"github.com/lamim/talentradar/internal/util"
	"github.com/lamim/talentradar/pkg/models"
)

// Radar dimensions
const (
	DimResearchFit  = "research_fit"
	DimImpact       = "impact"
	DimProductivity = "productivity"
	DimVenueQuality = "venue_quality"
)

// Dimensions lists the radar dimensions in display order
var Dimensions = []string{DimResearchFit, DimImpact, DimProductivity, DimVenueQuality}

// Weights of the rule-based total
var dimensionWeights = map[string]float64{
	DimResearchFit:  0.4,
	DimImpact:       0.25,
	DimProductivity: 0.15,
	DimVenueQuality: 0.2,
}

const maxPromptPapers = 10

// Evaluator scores resolved candidate profiles
type Evaluator struct {
	model    api.LanguageModel
	template string
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator. model may be nil.
func NewEvaluator(model api.LanguageModel, template string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		model:    model,
		template: template,
		logger:   logger.With("component", "evaluator"),
	}
}

type evaluation struct {
	Radar      map[string]float64 `json:"radar"`
	TotalScore *float64           `json:"total_score"`
	Role       string             `json:"role"`
	Keywords   []string           `json:"keywords"`
	Reasoning  string             `json:"reasoning"`
}

// Evaluate fills the radar, total score, keywords and reasoning of profile.
// A role already present on the profile is kept.
func (e *Evaluator) Evaluate(ctx context.Context, profile models.CandidateProfile, papers []scholar.Paper, spec models.QuerySpec) models.CandidateProfile {
	out := profile.Clone()

	ev, err := e.askModel(ctx, out, papers, spec)
	if err != nil {
		if !errors.Is(err, ErrNoModel) {
			e.logger.Debug("Model evaluation failed, using rules", "name", profile.Name, "error", err)
		}
		ev = ruleEvaluation(out, papers, spec)
	}

	out.Radar = ev.Radar
	out.TotalScore = *ev.TotalScore
	out.Reasoning = ev.Reasoning
	if len(ev.Keywords) > 0 {
		out.Keywords = ev.Keywords
	}
	if out.Role == "" {
		out.Role = ev.Role
	}
	return out
}

func (e *Evaluator) askModel(ctx context.Context, profile models.CandidateProfile, papers []scholar.Paper, spec models.QuerySpec) (evaluation, error) {
	answer, err := ask(ctx, e.model, e.template, map[string]any{
		"Keywords":         strings.Join(spec.Keywords, ", "),
		"ResearchField":    spec.ResearchField,
		"ExtraConstraints": strings.Join(spec.ExtraConstraints, "; "),
		"Name":             profile.Name,
		"Affiliations":     strings.Join(profile.Affiliations, "; "),
		"HIndex":           profile.HIndex,
		"PaperCount":       profile.PaperCount,
		"CitationCount":    profile.CitationCount,
		"TriggerPaper":     profile.TriggerPaperTitle,
		"Papers":           formatPapers(papers),
	})
	if err != nil {
		return evaluation{}, err
	}

	var ev evaluation
	if err := util.DecodeJSON(answer, &ev); err != nil {
		return evaluation{}, err
	}
	if len(ev.Radar) == 0 {
		return evaluation{}, fmt.Errorf("radar missing in %q", util.TruncateString(answer, 200))
	}

	radar := make(map[string]float64, len(Dimensions))
	var sum float64
	for _, dim := range Dimensions {
		v := round1(clamp(ev.Radar[dim], 0, 10))
		radar[dim] = v
		sum += v
	}
	ev.Radar = radar

	total := round1(sum / float64(len(Dimensions)))
	if ev.TotalScore != nil {
		total = round1(clamp(*ev.TotalScore, 0, 10))
	}
	ev.TotalScore = &total
	ev.Role = strings.TrimSpace(ev.Role)
	ev.Reasoning = strings.TrimSpace(ev.Reasoning)
	return ev, nil
}

// ruleEvaluation scores a profile without a model. Research fit is keyword
// overlap with the candidate's papers, impact and productivity grow
// logarithmically with h-index and paper count, and venue quality is the
// share of papers at a requested venue.
func ruleEvaluation(profile models.CandidateProfile, papers []scholar.Paper, spec models.QuerySpec) evaluation {
	var text strings.Builder
	text.WriteString(profile.TriggerPaperTitle)
	for _, p := range papers {
		text.WriteString(" ")
		text.WriteString(p.Title)
		text.WriteString(" ")
		text.WriteString(p.Abstract)
	}

	fit := 5.0
	if len(spec.Keywords) > 0 {
		fit = 10 * keywordOverlap(text.String(), spec.Keywords)
	}

	venue := 5.0
	if len(spec.Venues) > 0 && len(papers) > 0 {
		var hits int
		for _, p := range papers {
			if keywordOverlap(p.Venue, spec.Venues) > 0 {
				hits++
			}
		}
		venue = 10 * float64(hits) / float64(len(papers))
	}

	radar := map[string]float64{
		DimResearchFit:  round1(clamp(fit, 0, 10)),
		DimImpact:       round1(clamp(2.5*math.Log2(1+float64(profile.HIndex)), 0, 10)),
		DimProductivity: round1(clamp(2*math.Log2(1+float64(profile.PaperCount)), 0, 10)),
		DimVenueQuality: round1(clamp(venue, 0, 10)),
	}

	var total float64
	for dim, w := range dimensionWeights {
		total += w * radar[dim]
	}
	total = round1(total)

	return evaluation{
		Radar:      radar,
		TotalScore: &total,
		Keywords:   matchedKeywords(text.String(), spec.Keywords),
		Reasoning: fmt.Sprintf("Rule-based score: h-index %d, %d papers, %.0f%% keyword overlap.",
			profile.HIndex, profile.PaperCount, fit*10),
	}
}

func formatPapers(papers []scholar.Paper) string {
	if len(papers) == 0 {
		return "(none listed)"
	}
	var b strings.Builder
	for i, p := range papers {
		if i == maxPromptPapers {
			break
		}
		fmt.Fprintf(&b, "- %s", p.Title)
		var meta []string
		if p.Venue != "" {
			meta = append(meta, p.Venue)
		}
		if p.Year > 0 {
			meta = append(meta, fmt.Sprint(p.Year))
		}
		meta = append(meta, fmt.Sprintf("%d citations", p.CitationCount))
		fmt.Fprintf(&b, " (%s)\n", strings.Join(meta, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
