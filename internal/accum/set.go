// Package accum holds the deduplicating containers a search task accumulates
// into. Every container is safe for concurrent use and its merge operations are
// idempotent with respect to the container's key.
package accum

import (
	"github.com/lamim/talentradar/pkg/models"
)

// Set bundles the accumulators of a single task
type Set struct {
	Candidates   *OrderedMap[models.CandidateProfile] // last write wins
	Papers       *OrderedMap[models.ScoredPaper]      // first write wins
	Pending      *SeedSet
	SeenURLs     *SeenSet
	SeenSERPURLs *SeenSet
}

// NewSet creates empty accumulators
func NewSet() *Set {
	return &Set{
		Candidates:   NewOrderedMap[models.CandidateProfile](LastWriteWins),
		Papers:       NewOrderedMap[models.ScoredPaper](FirstWriteWins),
		Pending:      NewSeedSet(),
		SeenURLs:     NewSeenSet(),
		SeenSERPURLs: NewSeenSet(),
	}
}

// FromState restores accumulators verbatim from a checkpoint
func FromState(state *models.TaskState) *Set {
	s := NewSet()
	for _, c := range state.Candidates {
		s.Candidates.Put(CandidateKey(c.Name), c.Clone())
	}
	for _, p := range state.Papers {
		s.Papers.Put(p.URL, p.Clone())
	}
	for _, seed := range state.PendingSeeds {
		s.Pending.AddIfNew(seed)
	}
	for _, u := range state.SeenURLs {
		s.SeenURLs.MarkIfNew(u)
	}
	for _, u := range state.SeenSERPURLs {
		s.SeenSERPURLs.MarkIfNew(u)
	}
	return s
}

// Fill writes a snapshot of the accumulators into state
func (s *Set) Fill(state *models.TaskState) {
	state.Candidates = s.Candidates.Values()
	state.Papers = s.Papers.Values()
	state.PendingSeeds = s.Pending.Snapshot()
	state.SeenURLs = s.SeenURLs.Items()
	state.SeenSERPURLs = s.SeenSERPURLs.Items()
}

// AcceptCandidate stores profile under its identity, replacing any earlier profile
func (s *Set) AcceptCandidate(profile models.CandidateProfile) {
	s.Candidates.Put(CandidateKey(profile.Name), profile)
}

// AssociateCandidate records that name was discovered through the paper at paperURL
func (s *Set) AssociateCandidate(paperURL, name string) bool {
	return s.Papers.Update(paperURL, func(p models.ScoredPaper) models.ScoredPaper {
		for _, existing := range p.AssociatedCandidates {
			if existing == name {
				return p
			}
		}
		p.AssociatedCandidates = append(append([]string{}, p.AssociatedCandidates...), name)
		return p
	})
}

// CandidateKey is the identity key used for the candidate index
func CandidateKey(name string) string {
	return models.NormalizeName(name)
}
