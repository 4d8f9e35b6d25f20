package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/lamim/talentradar/pkg/models"
)

// Milestone fractions reported to the progress callback
const (
	fracParsing        = 0.05
	fracSearchStart    = 0.10
	fracSearchSpan     = 0.25
	fracExtracting     = 0.42
	fracAnalyzingStart = 0.48
	fracResolveStart   = 0.50
	fracResolveSpan    = 0.25
	fracRankingStart   = 0.78
	fracRankingDone    = 0.88
	fracFinalizing     = 0.92
	fracDone           = 1.0
)

// reporter wraps the optional progress callback and remembers the last
// fraction so a pause can be reported where the run stopped.
type reporter struct {
	fn     ProgressFunc
	logger *slog.Logger
	last   float64
}

func (r *reporter) emit(event string, fraction float64) {
	r.last = fraction
	if r.fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Progress callback panicked", "event", event, "panic", rec)
		}
	}()
	r.fn(event, fraction)
}

func (r *reporter) searching(pos, total int) {
	frac := fracSearchStart
	if total > 0 {
		frac += fracSearchSpan * float64(pos) / float64(total)
	}
	r.emit(models.EventSearching, frac)
}

func (r *reporter) resolved(done, total int) {
	frac := fracResolveStart
	if total > 0 {
		frac += fracResolveSpan * float64(done) / float64(total)
	}
	r.emit(models.EventAnalyzing, frac)
}

func (r *reporter) paused() {
	r.emit(models.EventPaused, r.last)
}

// pauseMessage describes a paused task. Two rounds make one search cycle.
func pauseMessage(rounds, candidates int) string {
	cycle := rounds / 2
	return fmt.Sprintf("Completed search cycle %d (%d rounds), found %d candidates.", cycle, rounds, candidates)
}
