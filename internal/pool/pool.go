// Package pool implements a rolling window executor: at most W work items run
// at once and a finished item is replaced by the next pending one immediately.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lamim/talentradar/internal/metrics"
)

// ErrPanic wraps a panic raised by a worker function
var ErrPanic = errors.New("worker panicked")

// Func processes a single work item
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// Outcome is the result of one work item, delivered in completion order
type Outcome[T, R any] struct {
	Item     T
	Result   R
	Err      error
	Duration time.Duration
}

// Option configures a Pool
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

// WithLogger sets the pool logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records in-flight and per-item metrics under the pool name
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// Pool runs a worker function over a list of items with bounded concurrency
type Pool[T, R any] struct {
	name    string
	width   int
	fn      Func[T, R]
	logger  *slog.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool

	inFlight atomic.Int64
	started  atomic.Int64
}

// New creates a pool. The width is clamped to the number of submitted items.
func New[T, R any](name string, width int, fn Func[T, R], opts ...Option) *Pool[T, R] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool[T, R]{
		name:    name,
		width:   width,
		fn:      fn,
		logger:  o.logger.With("pool", name),
		metrics: o.metrics,
	}
}

// SubmitAll starts executing items and returns a channel of outcomes in
// completion order. The channel is closed once every started item has
// reported. Items never started because of cancellation are not reported.
func (p *Pool[T, R]) SubmitAll(ctx context.Context, items []T) <-chan Outcome[T, R] {
	out := make(chan Outcome[T, R], len(items))
	if len(items) == 0 {
		close(out)
		return out
	}

	width := p.width
	if width < 1 {
		width = 1
	}
	if width > len(items) {
		width = len(items)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.cancelled = false
	p.mu.Unlock()

	p.logger.Debug("Dispatching work", "items", len(items), "width", width)
	go p.dispatch(runCtx, cancel, items, width, out)
	return out
}

func (p *Pool[T, R]) dispatch(
	ctx context.Context,
	cancel context.CancelFunc,
	items []T,
	width int,
	out chan<- Outcome[T, R],
) {
	defer cancel()

	sem := semaphore.NewWeighted(int64(width))
	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			p.logger.Debug("Dispatch stopped", "dropped", len(items)-i, "reason", err)
			break
		}
		if p.isCancelled() {
			sem.Release(1)
			p.logger.Debug("Dispatch cancelled", "dropped", len(items)-i)
			break
		}

		wg.Add(1)
		p.started.Add(1)
		p.metrics.SetInFlight(p.name, int(p.inFlight.Add(1)))

		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)

			o := p.run(ctx, item)
			p.metrics.SetInFlight(p.name, int(p.inFlight.Add(-1)))
			out <- o
		}(item)
	}

	wg.Wait()
	close(out)
}

func (p *Pool[T, R]) run(ctx context.Context, item T) (o Outcome[T, R]) {
	start := time.Now()
	o.Item = item
	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			p.logger.Error("Worker panicked", "panic", r)
		}
		o.Duration = time.Since(start)
		p.metrics.RecordPoolItem(p.name, o.Duration, o.Err == nil)
	}()

	o.Result, o.Err = p.fn(ctx, item)
	return o
}

// CancelRemaining stops dispatching unstarted items and cancels the context
// of running ones. Running items still report their outcome. Safe to call
// more than once and from any goroutine.
func (p *Pool[T, R]) CancelRemaining() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		return
	}
	p.cancelled = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool[T, R]) isCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// InFlight returns the number of items currently executing
func (p *Pool[T, R]) InFlight() int {
	return int(p.inFlight.Load())
}

// Started returns the number of items dispatched so far
func (p *Pool[T, R]) Started() int {
	return int(p.started.Load())
}
