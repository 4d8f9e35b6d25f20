package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func terms(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%d", i+1)
	}
	return out
}

// world is a deterministic stand-in for the external collaborators. Every
// term yields its own paper plus one paper shared by all terms; every paper
// yields one author.
type world struct {
	terms []string

	mu        sync.Mutex
	searched  []string
	fetched   map[string]int
	resolved  []string
	failSeeds map[string]bool
	noSeeds   bool
}

func newWorld(n int) *world {
	return &world{terms: terms(n), fetched: map[string]int{}, failSeeds: map[string]bool{}}
}

func (w *world) deps(store *checkpoint.Store) Dependencies {
	return Dependencies{
		Planner: PlanFunc(func(models.QuerySpec) []string { return append([]string(nil), w.terms...) }),
		Search: SearchFunc(func(_ context.Context, term string) ([]models.SearchResult, error) {
			w.mu.Lock()
			w.searched = append(w.searched, term)
			w.mu.Unlock()
			return []models.SearchResult{
				{URL: "https://papers.example/" + term, Title: "Paper " + term},
				{URL: "https://papers.example/shared", Title: "Paper shared"},
			}, nil
		}),
		Selector: SelectFunc(func(_ context.Context, _ models.QuerySpec, results []models.SearchResult) ([]models.ScoredPaper, error) {
			papers := make([]models.ScoredPaper, 0, len(results))
			for _, r := range results {
				papers = append(papers, models.ScoredPaper{URL: r.URL, Title: r.Title, Score: 7})
			}
			return papers, nil
		}),
		Extractor: ExtractFunc(func(_ context.Context, _ models.QuerySpec, papers []models.ScoredPaper) ([]models.Seed, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.noSeeds {
				return nil, nil
			}
			var seeds []models.Seed
			for _, p := range papers {
				w.fetched[p.URL]++
				seeds = append(seeds, models.Seed{
					Name:       "Author " + p.Title,
					AuthorID:   p.Title,
					PaperTitle: p.Title,
					PaperURL:   p.URL,
				})
			}
			return seeds, nil
		}),
		Orchestrator: DiscoverFunc(func(_ context.Context, _ models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error) {
			w.mu.Lock()
			w.resolved = append(w.resolved, seed.Name)
			fail := w.failSeeds[seed.Name]
			w.mu.Unlock()
			if fail {
				return nil, errors.New("profile lookup failed")
			}
			return &models.CandidateProfile{Name: seed.Name, AuthorID: seed.AuthorID, TotalScore: scoreOf(seed.Name)}, nil
		}),
		Acceptor: AcceptAll,
		Store:    store,
	}
}

// scoreOf gives "Author Paper tN" the score N and anything else 0.5
func scoreOf(name string) float64 {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "Author Paper t"))
	if err != nil {
		return 0.5
	}
	return float64(n)
}

func newStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.NewStore(t.TempDir(), time.Hour, testLogger())
	require.NoError(t, err)
	return store
}

func sequential(chunk int) Options {
	return Options{ChunkSize: chunk, SearchWorkers: 1, CandidateWorkers: 1}
}

func spec(topN int) models.QuerySpec {
	return models.QuerySpec{TopN: topN, Keywords: []string{"retrieval"}, Venues: []string{"ACL"}}
}

func TestNew_RequiresDependencies(t *testing.T) {
	w := newWorld(1)
	deps := w.deps(nil)
	deps.Orchestrator = nil

	_, err := New(deps, Options{}, testLogger())
	assert.Error(t, err)

	s, err := New(w.deps(nil), Options{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, s.opts.ChunkSize)
}

func TestExecute_PausesThenResumesToFinish(t *testing.T) {
	store := newStore(t)
	w := newWorld(10)
	s, err := New(w.deps(store), Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	first, err := s.Execute(context.Background(), spec(3), 1, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaused, first.Status)
	require.NotNil(t, first.Partial)
	assert.Nil(t, first.Final)
	assert.Equal(t, 5, first.Partial.Pos)
	assert.Equal(t, 1, first.Partial.RoundsCompleted)
	assert.Equal(t, 10, first.Partial.TotalTerms)
	assert.True(t, first.Partial.NeedUserDecision)
	assert.ElementsMatch(t, terms(5), w.searched)

	saved, ok := store.Load(first.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPaused, saved.Status)
	assert.Equal(t, 5, saved.Pos)

	w.searched = nil
	second, err := s.Execute(context.Background(), models.QuerySpec{}, 1, saved)
	require.NoError(t, err)
	require.Equal(t, models.StatusFinished, second.Status)
	require.NotNil(t, second.Final)
	assert.Equal(t, 10, second.State.Pos)
	assert.Equal(t, 2, second.State.RoundsCompleted)
	assert.ElementsMatch(t, []string{"t6", "t7", "t8", "t9", "t10"}, w.searched)

	// 10 term papers plus the shared one
	assert.Equal(t, 11, second.Final.TotalCandidatesFound)
	assert.Equal(t, []string{"Author Paper t10", "Author Paper t9", "Author Paper t8"}, candidateNames(second.Final.Recommended))

	final, ok := store.Load(first.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, final.Status)
}

func candidateNames(profiles []models.CandidateProfile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Name
	}
	return out
}

func TestExecute_ResumeEquivalence(t *testing.T) {
	uninterrupted := newWorld(12)
	s, err := New(uninterrupted.deps(nil), sequential(4), testLogger())
	require.NoError(t, err)
	want, err := s.Execute(context.Background(), spec(4), 0, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusFinished, want.Status)

	store := newStore(t)
	interrupted := newWorld(12)
	s2, err := New(interrupted.deps(store), sequential(4), testLogger())
	require.NoError(t, err)

	out, err := s2.Execute(context.Background(), spec(4), 1, nil)
	require.NoError(t, err)
	pauses := 0
	for out.Status == models.StatusPaused {
		pauses++
		saved, ok := store.Load(out.State.TaskID)
		require.True(t, ok)
		out, err = s2.Execute(context.Background(), models.QuerySpec{}, 1, saved)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, pauses)

	assert.Equal(t, want.State.Candidates, out.State.Candidates)
	assert.Equal(t, want.State.Papers, out.State.Papers)
	assert.Equal(t, want.Final.Recommended, out.Final.Recommended)
	assert.Equal(t, want.Final.Additional, out.Final.Additional)
	assert.Equal(t, want.Final.Papers, out.Final.Papers)
	assert.Equal(t, want.State.RoundsCompleted, out.State.RoundsCompleted)
	assert.Equal(t, uninterrupted.searched, interrupted.searched)
}

func TestExecute_PosIsMonotonicAcrossResume(t *testing.T) {
	store := newStore(t)
	w := newWorld(10)
	s, err := New(w.deps(store), Options{ChunkSize: 3}, testLogger())
	require.NoError(t, err)

	var positions []int
	out, err := s.Execute(context.Background(), spec(2), 1, nil)
	require.NoError(t, err)
	positions = append(positions, out.State.Pos)
	for out.Status == models.StatusPaused {
		saved, ok := store.Load(out.State.TaskID)
		require.True(t, ok)
		out, err = s.Execute(context.Background(), models.QuerySpec{}, 1, saved)
		require.NoError(t, err)
		positions = append(positions, out.State.Pos)
	}

	// The last batch is short and finishes without a pause
	assert.Equal(t, []int{3, 6, 9, 10}, positions)

	counts := map[string]int{}
	for _, term := range w.searched {
		counts[term]++
	}
	for _, term := range terms(10) {
		assert.Equal(t, 1, counts[term], "term %s", term)
	}
}

func TestExecute_FetchesEachURLOnce(t *testing.T) {
	store := newStore(t)
	w := newWorld(6)
	s, err := New(w.deps(store), Options{ChunkSize: 2}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(2), 1, nil)
	require.NoError(t, err)
	for out.Status == models.StatusPaused {
		saved, ok := store.Load(out.State.TaskID)
		require.True(t, ok)
		out, err = s.Execute(context.Background(), models.QuerySpec{}, 1, saved)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, w.fetched["https://papers.example/shared"])
	for url, n := range w.fetched {
		assert.Equal(t, 1, n, url)
	}
	assert.Len(t, out.State.SeenSERPURLs, 7)
	assert.Len(t, out.State.Papers, 7)
}

func TestExecute_ZeroSeedRounds(t *testing.T) {
	w := newWorld(4)
	w.noSeeds = true
	s, err := New(w.deps(nil), Options{ChunkSize: 2}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(2), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	assert.Equal(t, 2, out.State.RoundsCompleted)
	assert.Zero(t, out.Final.TotalCandidatesFound)
	assert.Empty(t, out.Final.Recommended)
	assert.Len(t, out.Final.Papers, 5)
}

func TestExecute_SeedFailureResolvesSeed(t *testing.T) {
	w := newWorld(2)
	w.failSeeds["Author Paper t1"] = true
	s, err := New(w.deps(nil), Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(5), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	assert.Empty(t, out.State.PendingSeeds)
	assert.Equal(t, 1, out.State.Stats.SeedFailures)
	assert.Equal(t, 3, out.State.Stats.SeedsResolved)
	assert.Equal(t, 2, out.Final.TotalCandidatesFound)
	assert.NotContains(t, candidateNames(out.Final.Recommended), "Author Paper t1")
}

func TestExecute_RejectedProfilesAreNotAccumulated(t *testing.T) {
	w := newWorld(3)
	deps := w.deps(nil)
	deps.Acceptor = AcceptFunc(func(_ context.Context, p models.CandidateProfile, _ models.QuerySpec) bool {
		return p.TotalScore >= 2
	})
	s, err := New(deps, Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(5), 0, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Author Paper t2", "Author Paper t3"}, candidateNames(out.State.Candidates))
	assert.Equal(t, 2, out.State.Stats.CandidatesRejected)
}

func TestExecute_RecordsPaperAssociation(t *testing.T) {
	w := newWorld(1)
	s, err := New(w.deps(nil), Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(1), 0, nil)
	require.NoError(t, err)

	for _, p := range out.State.Papers {
		require.Len(t, p.AssociatedCandidates, 1, p.URL)
		assert.Equal(t, "Author "+p.Title, p.AssociatedCandidates[0])
	}
	for _, c := range out.State.Candidates {
		assert.NotEmpty(t, c.TriggerPaperURL)
	}
}

func TestExecute_EarlyStopLeavesUnstartedSeedsPending(t *testing.T) {
	w := newWorld(1)
	deps := w.deps(nil)
	deps.Extractor = ExtractFunc(func(_ context.Context, _ models.QuerySpec, _ []models.ScoredPaper) ([]models.Seed, error) {
		return []models.Seed{
			{Name: "First", PaperURL: "https://papers.example/t1"},
			{Name: "Second", PaperURL: "https://papers.example/t1"},
			{Name: "Third", PaperURL: "https://papers.example/t1"},
		}, nil
	})
	deps.Orchestrator = DiscoverFunc(func(ctx context.Context, _ models.QuerySpec, seed models.Seed) (*models.CandidateProfile, error) {
		if seed.Name == "First" {
			return &models.CandidateProfile{Name: seed.Name, TotalScore: 1}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return &models.CandidateProfile{Name: seed.Name, TotalScore: 1}, nil
		}
	})

	s, err := New(deps, Options{ChunkSize: 5, CandidateWorkers: 1, EarlyStop: true}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(1), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	assert.Equal(t, []string{"First"}, candidateNames(out.State.Candidates))
	assert.Len(t, out.State.PendingSeeds, 2)
}

func TestExecute_DrainsPendingSeedsOnResume(t *testing.T) {
	w := newWorld(2)
	s, err := New(w.deps(nil), Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	state := models.NewTaskState(checkpoint.NewTaskID(time.Now()), spec(2), terms(2), time.Now())
	state.Pos = 2
	state.Status = models.StatusPaused
	state.PendingSeeds = []models.Seed{{Name: "Author Paper t2", PaperURL: "https://papers.example/t2"}}

	out, err := s.Execute(context.Background(), models.QuerySpec{}, 1, state)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	assert.Empty(t, out.State.PendingSeeds)
	assert.Equal(t, []string{"Author Paper t2"}, candidateNames(out.State.Candidates))
	assert.Empty(t, w.searched)
}

func TestExecute_CancelledContextPersistsPaused(t *testing.T) {
	store := newStore(t)
	w := newWorld(4)
	s, err := New(w.deps(store), Options{ChunkSize: 2}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.Execute(ctx, spec(2), 0, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, models.StatusPaused, out.Status)
	assert.Equal(t, 0, out.State.Pos)

	saved, ok := store.Load(out.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPaused, saved.Status)
}

func TestExecute_CancelMidRoundResumesFromRoundStart(t *testing.T) {
	reference := newWorld(4)
	s, err := New(reference.deps(nil), sequential(2), testLogger())
	require.NoError(t, err)
	want, err := s.Execute(context.Background(), spec(10), 0, nil)
	require.NoError(t, err)
	require.Len(t, want.State.Candidates, 5)

	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newWorld(4)
	deps := w.deps(store)
	search := deps.Search
	var once sync.Once
	deps.Search = SearchFunc(func(c context.Context, term string) ([]models.SearchResult, error) {
		if term == "t2" {
			cancelled := false
			once.Do(func() {
				cancel()
				cancelled = true
			})
			if cancelled {
				return nil, c.Err()
			}
		}
		return search.Search(c, term)
	})
	s, err = New(deps, sequential(2), testLogger())
	require.NoError(t, err)

	first, err := s.Execute(ctx, spec(10), 0, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, models.StatusPaused, first.Status)

	saved, ok := store.Load(first.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, 0, saved.Pos)
	assert.Equal(t, 0, saved.RoundsCompleted)
	assert.Empty(t, saved.SeenURLs)
	assert.Empty(t, saved.SeenSERPURLs)
	assert.Empty(t, saved.Candidates)

	resumed, err := s.Execute(context.Background(), models.QuerySpec{}, 0, saved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, resumed.Status)
	assert.ElementsMatch(t, candidateNames(want.State.Candidates), candidateNames(resumed.State.Candidates))
	assert.Contains(t, candidateNames(resumed.State.Candidates), "Author Paper t2")
}

func TestExecute_InvalidInput(t *testing.T) {
	w := newWorld(2)
	s, err := New(w.deps(nil), Options{}, testLogger())
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), models.QuerySpec{TopN: 0}, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	bad := models.NewTaskState(checkpoint.NewTaskID(time.Now()), spec(2), terms(2), time.Now())
	bad.Pos = -1
	_, err = s.Execute(context.Background(), models.QuerySpec{}, 1, bad)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExecute_CheckpointEachRoundEndsFinished(t *testing.T) {
	store := newStore(t)
	w := newWorld(10)
	s, err := New(w.deps(store), Options{ChunkSize: 2, CheckpointEachRound: true}, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(3), 0, nil)
	require.NoError(t, err)

	saved, ok := store.Load(out.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, saved.Status)
	assert.Equal(t, 10, saved.Pos)
	assert.Equal(t, 5, saved.RoundsCompleted)
}

func TestExecute_ProgressEvents(t *testing.T) {
	w := newWorld(4)
	var mu sync.Mutex
	var events []string
	opts := Options{ChunkSize: 2, Progress: func(event string, fraction float64) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		assert.GreaterOrEqual(t, fraction, 0.0)
		assert.LessOrEqual(t, fraction, 1.0)
		panic("observers must not break the run")
	}}
	s, err := New(w.deps(nil), opts, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(2), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)

	require.NotEmpty(t, events)
	assert.Equal(t, models.EventParsing, events[0])
	assert.Equal(t, models.EventDone, events[len(events)-1])
	assert.Contains(t, events, models.EventSearching)
	assert.Contains(t, events, models.EventExtracting)
	assert.Contains(t, events, models.EventAnalyzing)
	assert.Contains(t, events, models.EventRanking)
}

func TestExecute_SearchingEmittedBeforeBatchRuns(t *testing.T) {
	w := newWorld(2)
	deps := w.deps(nil)
	search := deps.Search

	var mu sync.Mutex
	var trace []string
	deps.Search = SearchFunc(func(ctx context.Context, term string) ([]models.SearchResult, error) {
		mu.Lock()
		trace = append(trace, "search "+term)
		mu.Unlock()
		return search.Search(ctx, term)
	})
	opts := sequential(2)
	opts.Progress = func(event string, _ float64) {
		mu.Lock()
		trace = append(trace, event)
		mu.Unlock()
	}
	s, err := New(deps, opts, testLogger())
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), spec(2), 0, nil)
	require.NoError(t, err)

	searching := slices.Index(trace, models.EventSearching)
	first := slices.Index(trace, "search t1")
	require.NotEqual(t, -1, searching)
	require.NotEqual(t, -1, first)
	assert.Less(t, searching, first)
}

func TestFinish_SkipsRemainingRounds(t *testing.T) {
	store := newStore(t)
	w := newWorld(10)
	s, err := New(w.deps(store), Options{ChunkSize: 5}, testLogger())
	require.NoError(t, err)

	paused, err := s.Execute(context.Background(), spec(2), 1, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaused, paused.Status)

	saved, ok := store.Load(paused.State.TaskID)
	require.True(t, ok)
	searchedBefore := len(w.searched)

	final, err := s.Finish(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, searchedBefore, len(w.searched))
	assert.Equal(t, []string{"Author Paper t5", "Author Paper t4"}, candidateNames(final.Recommended))
	assert.Equal(t, 4, len(final.Additional))
	assert.Equal(t, models.StatusFinished, saved.Status)

	reloaded, ok := store.Load(paused.State.TaskID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, reloaded.Status)
	assert.Equal(t, 5, reloaded.Pos)
}

func TestFinish_RejectsInvalidState(t *testing.T) {
	s, err := New(newWorld(1).deps(nil), Options{}, testLogger())
	require.NoError(t, err)

	_, err = s.Finish(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPauseMessage(t *testing.T) {
	assert.Equal(t, "Completed search cycle 0 (1 rounds), found 4 candidates.", pauseMessage(1, 4))
	assert.Equal(t, "Completed search cycle 1 (2 rounds), found 0 candidates.", pauseMessage(2, 0))
	assert.Equal(t, "Completed search cycle 1 (3 rounds), found 7 candidates.", pauseMessage(3, 7))
	assert.Equal(t, "Completed search cycle 2 (4 rounds), found 9 candidates.", pauseMessage(4, 9))
}

func TestExecute_UsesInjectedTaskID(t *testing.T) {
	store := newStore(t)
	w := newWorld(2)
	opts := sequential(5)
	opts.NewTaskID = func(time.Time) string { return "task_20250601_120000_0badc0de" }
	s, err := New(w.deps(store), opts, testLogger())
	require.NoError(t, err)

	out, err := s.Execute(context.Background(), spec(1), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "task_20250601_120000_0badc0de", out.State.TaskID)
	assert.True(t, store.Exists("task_20250601_120000_0badc0de"))
}
