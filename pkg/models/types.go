package models

import (
	"fmt"
	"strings"
)

// QuerySpec holds the immutable parameters of a candidate search
type QuerySpec struct {
	TopN                 int      `json:"top_n" toml:"top_n"`
	Years                []int    `json:"years" toml:"years"`
	Venues               []string `json:"venues" toml:"venues"`
	Keywords             []string `json:"keywords" toml:"keywords"`
	ResearchField        string   `json:"research_field" toml:"research_field"`
	MustBeCurrentStudent bool     `json:"must_be_current_student" toml:"must_be_current_student"`
	DegreeLevels         []string `json:"degree_levels" toml:"degree_levels"`
	AuthorPriority       []string `json:"author_priority" toml:"author_priority"`
	ExtraConstraints     []string `json:"extra_constraints" toml:"extra_constraints"`
}

// Validate checks the spec for values that would make a task meaningless
func (q QuerySpec) Validate() error {
	if q.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1 (got %d)", q.TopN)
	}
	for _, y := range q.Years {
		if y < 1900 || y > 2200 {
			return fmt.Errorf("year out of range: %d", y)
		}
	}
	return nil
}

// SearchResult is a single record returned by the search provider
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Term    string `json:"term"`
}

// ScoredPaper is a selected paper with its relevance scoring
type ScoredPaper struct {
	URL                  string   `json:"url"`
	Title                string   `json:"title"`
	Abstract             string   `json:"abstract"`
	Score                int      `json:"score"`                 // 1-10
	RelevanceTier        int      `json:"relevance_tier"`        // 1 for top-tier matches, 0 otherwise
	CompletenessScore    float64  `json:"completeness_score"`    // 0-10, how well-formed the source is
	AssociatedCandidates []string `json:"associated_candidates"` // candidate names found through this paper
}

// Seed is a (candidate identity, source paper) pair awaiting resolution.
// Two seeds refer to the same person when their Identity matches.
type Seed struct {
	Name       string `json:"name"`
	AuthorID   string `json:"author_id"`
	PaperTitle string `json:"paper_title"`
	PaperURL   string `json:"paper_url"`
}

// Identity returns the normalized candidate identity used for deduplication
func (s Seed) Identity() string {
	return NormalizeName(s.Name)
}

// Key returns a stable key over every field of the seed
func (s Seed) Key() string {
	return strings.Join([]string{s.Identity(), s.AuthorID, s.PaperTitle, s.PaperURL}, "\x1f")
}

// Equal reports whether two seeds carry the same fields
func (s Seed) Equal(other Seed) bool {
	return s.Key() == other.Key()
}

// NormalizeName lower-cases a person name and collapses whitespace
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CandidateProfile is the profile and evaluation of a discovered candidate
type CandidateProfile struct {
	Name              string             `json:"name"`
	AuthorID          string             `json:"author_id,omitempty"`
	Role              string             `json:"role"`
	Status            string             `json:"status"`
	Affiliations      []string           `json:"affiliations,omitempty"`
	Homepage          string             `json:"homepage,omitempty"`
	Email             string             `json:"email,omitempty"`
	ProfileURL        string             `json:"profile_url,omitempty"`
	Keywords          []string           `json:"keywords,omitempty"`
	HIndex            int                `json:"h_index"`
	PaperCount        int                `json:"paper_count"`
	CitationCount     int                `json:"citation_count"`
	TotalScore        float64            `json:"total_score"`
	Radar             map[string]float64 `json:"radar,omitempty"`
	Reasoning         string             `json:"reasoning,omitempty"`
	TriggerPaperTitle string             `json:"trigger_paper_title"`
	TriggerPaperURL   string             `json:"trigger_paper_url"`
}

// PartialResult is returned when a task pauses between rounds
type PartialResult struct {
	TaskID               string             `json:"task_id"`
	NeedUserDecision     bool               `json:"need_user_decision"`
	RoundsCompleted      int                `json:"rounds_completed"`
	Pos                  int                `json:"pos"`
	TotalTerms           int                `json:"total_terms"`
	TotalCandidatesFound int                `json:"total_candidates_found"`
	CurrentCandidates    []CandidateProfile `json:"current_candidates"`
	Message              string             `json:"message"`
}

// FinalResult is the ranked output of a finished task
type FinalResult struct {
	TaskID               string             `json:"task_id"`
	Recommended          []CandidateProfile `json:"recommended_candidates"`
	Additional           []CandidateProfile `json:"additional_candidates"`
	Papers               []ScoredPaper      `json:"reward_papers"`
	TotalCandidatesFound int                `json:"total_candidates_found"`
	RoundsCompleted      int                `json:"rounds_completed"`
	SearchQuery          string             `json:"search_query"`
}

// Progress event names emitted to progress callbacks
const (
	EventParsing    = "parsing"
	EventSearching  = "searching"
	EventExtracting = "extracting"
	EventAnalyzing  = "analyzing"
	EventRanking    = "ranking"
	EventFinalizing = "finalizing"
	EventPaused     = "paused"
	EventDone       = "done"
)
