package scheduler

import (
	"context"
	"errors"
	"strings"

	"github.com/lamim/talentradar/internal/pool"
	"github.com/lamim/talentradar/pkg/models"
)

// resolution is what the candidate pool reports for one seed
type resolution struct {
	profile  *models.CandidateProfile
	accepted bool
}

// runRound executes one round body. Failures of single terms or seeds are
// logged and counted; they never abort the round.
func (s *Scheduler) runRound(ctx context.Context, r *run) {
	state := r.state
	state.RoundsCompleted++
	r.roundsThisRun++

	end := min(state.Pos+s.opts.ChunkSize, len(state.Terms))
	batch := append([]string(nil), state.Terms[state.Pos:end]...)
	state.Pos = end

	logger := s.logger.With("task_id", state.TaskID, "round", state.RoundsCompleted)
	logger.Info("Starting round",
		"batch", len(batch),
		"pos", state.Pos,
		"terms", len(state.Terms),
		"pending_seeds", r.acc.Pending.Len())

	r.progress.searching(state.Pos, len(state.Terms))
	fresh := s.searchBatch(ctx, r, batch)

	s.extractSeeds(ctx, r, fresh)
	s.resolveSeeds(ctx, r)

	logger.Info("Round complete",
		"new_results", len(fresh),
		"candidates", r.acc.Candidates.Len(),
		"papers", r.acc.Papers.Len(),
		"pending_seeds", r.acc.Pending.Len())
}

// searchBatch runs the batch through the search pool and returns results
// whose URL has not been seen by this task before.
func (s *Scheduler) searchBatch(ctx context.Context, r *run, batch []string) []models.SearchResult {
	if len(batch) == 0 {
		return nil
	}

	width := s.opts.SearchWorkers
	if width <= 0 {
		width = pool.Width(len(batch), pool.IOBound, 0)
	}

	p := pool.New("search", width, func(ctx context.Context, term string) ([]models.SearchResult, error) {
		return s.deps.Search.Search(ctx, term)
	}, pool.WithLogger(s.logger), pool.WithMetrics(s.deps.Metrics))

	var fresh []models.SearchResult
	for o := range p.SubmitAll(ctx, batch) {
		if o.Err != nil {
			r.state.Stats.SearchFailures++
			s.logger.Warn("Search failed", "term", o.Item, "error", o.Err)
			continue
		}
		r.state.Stats.SearchesRun++
		for _, res := range o.Result {
			url := strings.TrimSpace(res.URL)
			if url == "" || !r.acc.SeenSERPURLs.MarkIfNew(url) {
				continue
			}
			res.URL = url
			if res.Term == "" {
				res.Term = o.Item
			}
			fresh = append(fresh, res)
		}
	}
	return fresh
}

// extractSeeds selects papers from fresh results, gates each paper URL
// through the seen set and merges extracted seeds into the pending set.
func (s *Scheduler) extractSeeds(ctx context.Context, r *run, fresh []models.SearchResult) {
	if len(fresh) == 0 {
		return
	}
	state := r.state

	papers, err := s.deps.Selector.Select(ctx, state.Spec, fresh)
	if err != nil {
		s.logger.Warn("Paper selection failed", "results", len(fresh), "error", err)
		return
	}

	var toFetch []models.ScoredPaper
	for _, paper := range papers {
		if paper.URL == "" {
			continue
		}
		if r.acc.Papers.Put(paper.URL, paper.Clone()) {
			state.Stats.PapersSelected++
		}
		if r.acc.SeenURLs.MarkIfNew(paper.URL) {
			toFetch = append(toFetch, paper)
		}
	}
	if len(toFetch) == 0 {
		return
	}

	r.progress.emit(models.EventExtracting, fracExtracting)
	seeds, err := s.deps.Extractor.Extract(ctx, state.Spec, toFetch)
	if err != nil {
		s.logger.Warn("Seed extraction failed", "papers", len(toFetch), "error", err)
	}

	added := 0
	for _, seed := range seeds {
		if r.acc.Pending.AddIfNew(seed) {
			added++
		}
	}
	state.Stats.SeedsExtracted += added
	s.logger.Debug("Seeds extracted", "papers", len(toFetch), "seeds", len(seeds), "new", added)
}

// resolveSeeds dispatches every pending seed through the candidate pool.
// Each reported outcome removes its seed; seeds interrupted by cancellation
// stay pending for a later round.
func (s *Scheduler) resolveSeeds(ctx context.Context, r *run) {
	seeds := r.acc.Pending.Snapshot()
	if len(seeds) == 0 {
		return
	}
	state := r.state
	spec := state.Spec

	r.progress.emit(models.EventAnalyzing, fracAnalyzingStart)

	width := s.opts.CandidateWorkers
	if width <= 0 {
		width = pool.Width(len(seeds), pool.IOBound, 0)
	}

	p := pool.New("candidates", width, func(ctx context.Context, seed models.Seed) (resolution, error) {
		profile, err := s.deps.Orchestrator.DiscoverAndScore(ctx, spec, seed)
		if err != nil || profile == nil {
			return resolution{}, err
		}
		return resolution{
			profile:  profile,
			accepted: s.deps.Acceptor.Accept(ctx, *profile, spec),
		}, nil
	}, pool.WithLogger(s.logger), pool.WithMetrics(s.deps.Metrics))

	stopped := false
	resolved := 0
	for o := range p.SubmitAll(ctx, seeds) {
		if o.Err != nil && isInterrupted(o.Err) && (stopped || ctx.Err() != nil) {
			continue
		}

		r.acc.Pending.Remove(o.Item)
		resolved++
		state.Stats.SeedsResolved++
		r.progress.resolved(resolved, len(seeds))

		switch {
		case o.Err != nil:
			state.Stats.SeedFailures++
			s.logger.Warn("Candidate resolution failed", "seed", o.Item.Name, "paper", o.Item.PaperURL, "error", o.Err)
			continue
		case o.Result.profile == nil || !o.Result.accepted:
			state.Stats.CandidatesRejected++
			continue
		}

		profile := o.Result.profile.Clone()
		if profile.Name == "" {
			profile.Name = o.Item.Name
		}
		if profile.TriggerPaperURL == "" {
			profile.TriggerPaperURL = o.Item.PaperURL
		}
		if profile.TriggerPaperTitle == "" {
			profile.TriggerPaperTitle = o.Item.PaperTitle
		}
		r.acc.AcceptCandidate(profile)
		r.acc.AssociateCandidate(o.Item.PaperURL, profile.Name)
		state.Stats.CandidatesAccepted++

		if s.opts.EarlyStop && !stopped && r.acc.Candidates.Len() >= spec.TopN {
			stopped = true
			p.CancelRemaining()
			s.logger.Info("Enough candidates, cancelling remaining seeds",
				"candidates", r.acc.Candidates.Len(),
				"top_n", spec.TopN)
		}
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
