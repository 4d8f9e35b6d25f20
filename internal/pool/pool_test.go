package pool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func collect[T, R any](ch <-chan Outcome[T, R]) []Outcome[T, R] {
	var out []Outcome[T, R]
	for o := range ch {
		out = append(out, o)
	}
	return out
}

func TestSubmitAll_ProcessesEveryItem(t *testing.T) {
	p := New("double", 3, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}, WithLogger(testLogger()))

	outcomes := collect(p.SubmitAll(context.Background(), []int{1, 2, 3, 4, 5, 6, 7}))
	require.Len(t, outcomes, 7)

	var results []int
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, o.Item*2, o.Result)
		results = append(results, o.Result)
	}
	sort.Ints(results)
	assert.Equal(t, []int{2, 4, 6, 8, 10, 12, 14}, results)
}

func TestSubmitAll_EmptyInput(t *testing.T) {
	p := New("noop", 4, func(_ context.Context, n int) (int, error) { return n, nil })
	assert.Empty(t, collect(p.SubmitAll(context.Background(), nil)))
}

func TestSubmitAll_RollingWindowSaturation(t *testing.T) {
	const width = 3
	release := make(chan struct{})
	var running, peak atomic.Int64

	p := New("blocking", width, func(ctx context.Context, n int) (int, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		defer running.Add(-1)
		select {
		case <-release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return n, nil
	}, WithLogger(testLogger()))

	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	ch := p.SubmitAll(context.Background(), items)

	// The window fills up to exactly W and no further.
	require.Eventually(t, func() bool { return p.Started() == width }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, width, p.Started())
	assert.Equal(t, width, p.InFlight())

	// Each completion is refilled immediately while items remain.
	for done := 1; done <= len(items)-width; done++ {
		release <- struct{}{}
		<-ch
		want := width + done
		require.Eventually(t, func() bool { return p.Started() == want }, time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return p.InFlight() == width }, time.Second, time.Millisecond)
	}

	close(release)
	rest := collect(ch)
	assert.Len(t, rest, width)
	assert.Equal(t, int64(width), peak.Load())
}

func TestSubmitAll_FailureIsPerItem(t *testing.T) {
	boom := errors.New("boom")
	p := New("flaky", 2, func(_ context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, boom
		}
		return n, nil
	}, WithLogger(testLogger()))

	outcomes := collect(p.SubmitAll(context.Background(), []int{1, 2, 3, 4}))
	require.Len(t, outcomes, 4)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			assert.ErrorIs(t, o.Err, boom)
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestSubmitAll_PanicBecomesError(t *testing.T) {
	p := New("panicky", 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			panic("bad item")
		}
		return n, nil
	}, WithLogger(testLogger()))

	outcomes := collect(p.SubmitAll(context.Background(), []int{1, 2, 3}))
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		if o.Item == 2 {
			assert.ErrorIs(t, o.Err, ErrPanic)
		} else {
			assert.NoError(t, o.Err)
		}
	}
}

func TestCancelRemaining_DropsUnstarted(t *testing.T) {
	var once sync.Once
	started := make(chan struct{})

	p := New("cancel", 2, func(ctx context.Context, n int) (int, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return n, ctx.Err()
	}, WithLogger(testLogger()))

	ch := p.SubmitAll(context.Background(), []int{1, 2, 3, 4, 5, 6})
	<-started
	require.Eventually(t, func() bool { return p.InFlight() == 2 }, time.Second, time.Millisecond)

	p.CancelRemaining()
	p.CancelRemaining()

	outcomes := collect(ch)
	assert.Len(t, outcomes, 2, "only in-flight items report after cancellation")
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Equal(t, 2, p.Started())
}

func TestSubmitAll_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	p := New("parent", 2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}, WithLogger(testLogger()))

	outcomes := collect(p.SubmitAll(ctx, []int{1, 2, 3}))
	assert.Empty(t, outcomes)
	assert.Equal(t, int64(0), calls.Load())
}

func TestWidthFor(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		workload Workload
		limit    int
		cpus     int
		want     int
	}{
		{"no items", 0, IOBound, 0, 8, 0},
		{"single item", 1, IOBound, 0, 8, 1},
		{"io bound under cap", 30, IOBound, 0, 8, 30},
		{"io bound capped by cpu", 500, IOBound, 0, 8, 40},
		{"io bound hard cap", 500, IOBound, 0, 32, 100},
		{"io bound with limit", 500, IOBound, 20, 8, 20},
		{"cpu bound", 50, CPUBound, 0, 4, 4},
		{"mixed", 50, Mixed, 0, 4, 8},
		{"lightweight", 50, Lightweight, 0, 4, 32},
		{"minimum two workers", 10, CPUBound, 0, 1, 2},
		{"limit below minimum", 10, IOBound, 1, 8, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, widthFor(tt.n, tt.workload, tt.limit, tt.cpus))
		})
	}
}
