// Package finalizer turns accumulated task state into a ranked result.
package finalizer

import (
	"sort"
	"strings"

	"github.com/lamim/talentradar/pkg/models"
)

// Finalize ranks candidates and papers of a task. Candidates are ordered by
// TotalScore, descending, with ties kept in discovery order. The first TopN
// are recommended and the rest are additional.
func Finalize(state *models.TaskState) models.FinalResult {
	candidates := make([]models.CandidateProfile, len(state.Candidates))
	for i, c := range state.Candidates {
		candidates[i] = c.Clone()
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalScore > candidates[j].TotalScore
	})

	topN := state.Spec.TopN
	if topN < 0 {
		topN = 0
	}
	if topN > len(candidates) {
		topN = len(candidates)
	}

	return models.FinalResult{
		TaskID:               state.TaskID,
		Recommended:          candidates[:topN:topN],
		Additional:           append([]models.CandidateProfile{}, candidates[topN:]...),
		Papers:               SortPapers(state.Papers),
		TotalCandidatesFound: len(state.Candidates),
		RoundsCompleted:      state.RoundsCompleted,
		SearchQuery:          SearchQuery(state.Spec),
	}
}

// SortPapers orders papers by relevance tier, completeness and score, all
// descending. The input is not modified.
func SortPapers(papers []models.ScoredPaper) []models.ScoredPaper {
	out := make([]models.ScoredPaper, len(papers))
	for i, p := range papers {
		out[i] = p.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RelevanceTier != b.RelevanceTier {
			return a.RelevanceTier > b.RelevanceTier
		}
		if a.CompletenessScore != b.CompletenessScore {
			return a.CompletenessScore > b.CompletenessScore
		}
		return a.Score > b.Score
	})
	return out
}

// SearchQuery summarizes a spec as "keywords | venues"
func SearchQuery(spec models.QuerySpec) string {
	var parts []string
	if len(spec.Keywords) > 0 {
		parts = append(parts, strings.Join(spec.Keywords, ", "))
	}
	if len(spec.Venues) > 0 {
		parts = append(parts, strings.Join(spec.Venues, ", "))
	}
	return strings.Join(parts, " | ")
}
