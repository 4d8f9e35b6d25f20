package models

import "time"

// TaskStatus represents where a task sits in the round state machine
type TaskStatus string

const (
	StatusRunning  TaskStatus = "running"
	StatusPaused   TaskStatus = "paused"
	StatusFinished TaskStatus = "finished"
)

// TaskState is the checkpointed progress of a candidate search.
// Candidate and paper collections are stored as ordered lists so that
// first-discovery order survives a round trip through the store.
type TaskState struct {
	// Task identification
	TaskID    string    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Refreshed on every save

	Spec   QuerySpec  `json:"spec"`
	Status TaskStatus `json:"status"`

	// Term plan and cursor
	Terms           []string `json:"terms"`
	Pos             int      `json:"pos"` // Next unconsumed term, never decreases
	RoundsCompleted int      `json:"rounds_completed"`

	// Accumulators
	Candidates   []CandidateProfile `json:"candidates_accum"`
	Papers       []ScoredPaper      `json:"all_scored_papers"`
	PendingSeeds []Seed             `json:"pending_seeds"`
	SeenURLs     []string           `json:"seen_urls"`
	SeenSERPURLs []string           `json:"seen_serp_urls"`

	// Statistics (cumulative)
	Stats TaskStats `json:"stats"`
}

// TaskStats tracks cumulative counters for a task
type TaskStats struct {
	SearchesRun        int `json:"searches_run"`
	SearchFailures     int `json:"search_failures"`
	PapersSelected     int `json:"papers_selected"`
	SeedsExtracted     int `json:"seeds_extracted"`
	SeedsResolved      int `json:"seeds_resolved"`
	SeedFailures       int `json:"seed_failures"`
	CandidatesAccepted int `json:"candidates_accepted"`
	CandidatesRejected int `json:"candidates_rejected"`
}

// NewTaskState creates a fresh task with empty accumulators
func NewTaskState(taskID string, spec QuerySpec, terms []string, now time.Time) *TaskState {
	return &TaskState{
		TaskID:       taskID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Spec:         spec,
		Status:       StatusRunning,
		Terms:        append([]string{}, terms...),
		Candidates:   []CandidateProfile{},
		Papers:       []ScoredPaper{},
		PendingSeeds: []Seed{},
		SeenURLs:     []string{},
		SeenSERPURLs: []string{},
	}
}

// Clone returns a deep copy of the task state
func (t *TaskState) Clone() *TaskState {
	cp := *t
	cp.Spec = t.Spec.clone()
	cp.Terms = append([]string{}, t.Terms...)
	cp.Candidates = make([]CandidateProfile, len(t.Candidates))
	for i, c := range t.Candidates {
		cp.Candidates[i] = c.Clone()
	}
	cp.Papers = make([]ScoredPaper, len(t.Papers))
	for i, p := range t.Papers {
		cp.Papers[i] = p.Clone()
	}
	cp.PendingSeeds = append([]Seed{}, t.PendingSeeds...)
	cp.SeenURLs = append([]string{}, t.SeenURLs...)
	cp.SeenSERPURLs = append([]string{}, t.SeenSERPURLs...)
	return &cp
}

// Clone returns a deep copy of the paper record
func (p ScoredPaper) Clone() ScoredPaper {
	p.AssociatedCandidates = append([]string(nil), p.AssociatedCandidates...)
	return p
}

// Clone returns a deep copy of the candidate profile
func (c CandidateProfile) Clone() CandidateProfile {
	c.Affiliations = append([]string(nil), c.Affiliations...)
	c.Keywords = append([]string(nil), c.Keywords...)
	if c.Radar != nil {
		radar := make(map[string]float64, len(c.Radar))
		for k, v := range c.Radar {
			radar[k] = v
		}
		c.Radar = radar
	}
	return c
}

func (q QuerySpec) clone() QuerySpec {
	q.Years = append([]int(nil), q.Years...)
	q.Venues = append([]string(nil), q.Venues...)
	q.Keywords = append([]string(nil), q.Keywords...)
	q.DegreeLevels = append([]string(nil), q.DegreeLevels...)
	q.AuthorPriority = append([]string(nil), q.AuthorPriority...)
	q.ExtraConstraints = append([]string(nil), q.ExtraConstraints...)
	return q
}
