package accum

import (
	"sync"

	"github.com/lamim/talentradar/pkg/models"
)

// SeenSet records URLs that have already been dispatched
type SeenSet struct {
	mu    sync.RWMutex
	order []string
	seen  map[string]struct{}
}

// NewSeenSet creates a set pre-populated with items
func NewSeenSet(items ...string) *SeenSet {
	s := &SeenSet{seen: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.MarkIfNew(it)
	}
	return s
}

// MarkIfNew marks url and returns true only the first time it is seen
func (s *SeenSet) MarkIfNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Contains reports whether url has been marked
func (s *SeenSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[url]
	return ok
}

// Len returns the number of marked URLs
func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Items returns the marked URLs in marking order
func (s *SeenSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// SeedSet holds seeds awaiting resolution, keyed by candidate identity
type SeedSet struct {
	mu    sync.Mutex
	order []string
	seeds map[string]models.Seed
}

// NewSeedSet creates a set pre-populated with seeds
func NewSeedSet(seeds ...models.Seed) *SeedSet {
	s := &SeedSet{seeds: make(map[string]models.Seed, len(seeds))}
	for _, seed := range seeds {
		s.AddIfNew(seed)
	}
	return s
}

// AddIfNew adds seed unless a seed with the same identity is already pending
func (s *SeedSet) AddIfNew(seed models.Seed) bool {
	id := seed.Identity()
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seeds[id]; ok {
		return false
	}
	s.seeds[id] = seed
	s.order = append(s.order, id)
	return true
}

// Remove drops the pending seed with the same identity. Removing a seed
// that is not pending is a no-op.
func (s *SeedSet) Remove(seed models.Seed) {
	id := seed.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seeds[id]; !ok {
		return
	}
	delete(s.seeds, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether a seed with the same identity is pending
func (s *SeedSet) Contains(seed models.Seed) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seeds[seed.Identity()]
	return ok
}

// Len returns the number of pending seeds
func (s *SeedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Snapshot returns the pending seeds in the order they were added
func (s *SeedSet) Snapshot() []models.Seed {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Seed, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.seeds[id])
	}
	return out
}
