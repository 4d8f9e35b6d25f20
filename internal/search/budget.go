package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lamim/talentradar/internal/metrics"
)

// RestartFunc restarts or re-readies the search backend
type RestartFunc func(ctx context.Context) error

// Budget counts searches since the last backend restart. The caller whose
// search crosses the threshold runs the restart hook; other callers wait in
// Acquire until it is done. A zero threshold disables restarts.
type Budget struct {
	threshold int
	restart   RestartFunc
	logger    *slog.Logger
	metrics   *metrics.Collector

	mu         sync.Mutex
	count      int
	restarts   int
	restarting chan struct{} // Non-nil while a restart runs; closed when it ends
}

// NewBudget creates a budget. restart may be nil, in which case crossing the
// threshold only resets the counter.
func NewBudget(threshold int, restart RestartFunc, logger *slog.Logger, m *metrics.Collector) *Budget {
	if logger == nil {
		logger = slog.Default()
	}
	return &Budget{
		threshold: threshold,
		restart:   restart,
		logger:    logger.With("component", "search_budget"),
		metrics:   m,
	}
}

// Acquire blocks while a restart is in progress
func (b *Budget) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		ch := b.restarting
		b.mu.Unlock()
		if ch == nil {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Record counts one finished search and runs the restart hook when the
// threshold is reached
func (b *Budget) Record(ctx context.Context) {
	b.mu.Lock()
	b.count++
	if b.threshold <= 0 || b.count < b.threshold || b.restarting != nil {
		b.mu.Unlock()
		return
	}
	done := make(chan struct{})
	b.restarting = done
	count := b.count
	b.mu.Unlock()

	b.logger.Info("Search budget reached, restarting backend", "searches", count, "threshold", b.threshold)
	b.metrics.IncBudgetRestart()

	if b.restart != nil {
		if err := b.restart(ctx); err != nil {
			b.logger.Error("Search backend restart failed", "error", err)
		}
	}

	b.mu.Lock()
	b.count = 0
	b.restarts++
	b.restarting = nil
	b.mu.Unlock()
	close(done)
}

// Count returns the searches recorded since the last restart
func (b *Budget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Restarts returns how many restarts the budget has triggered
func (b *Budget) Restarts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.restarts
}
