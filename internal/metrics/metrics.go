package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentradar_api_request_duration_seconds",
			Help:    "LLM API request duration in seconds by model",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"model", "status"},
	)

	// Pool metrics
	poolInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talentradar_pool_in_flight",
			Help: "Work items currently executing in a rolling window pool",
		},
		[]string{"pool"},
	)

	poolItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentradar_pool_item_duration_seconds",
			Help:    "Duration of a single pool work item",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"pool"},
	)

	poolItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentradar_pool_items_total",
			Help: "Pool work items completed by status",
		},
		[]string{"pool", "status"}, // status: "success"/"error"
	)

	// Scheduler metrics
	rounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentradar_rounds_total",
			Help: "Rounds executed by outcome",
		},
		[]string{"outcome"}, // "running"/"paused"/"finished"
	)

	candidatesAccumulated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talentradar_candidates_accumulated",
			Help: "Candidates accumulated by the most recent round",
		},
	)

	checkpointOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentradar_checkpoint_operations_total",
			Help: "Checkpoint store operations by type and status",
		},
		[]string{"op", "status"},
	)

	budgetRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talentradar_search_budget_restarts_total",
			Help: "Search backend restarts triggered by the search budget",
		},
	)
)

// Collector provides convenience methods for recording metrics.
// A nil *Collector is valid and records nothing.
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordAPIRequest records an LLM API request duration
func (c *Collector) RecordAPIRequest(model string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	apiRequestDuration.WithLabelValues(model, status(success)).Observe(duration.Seconds())
}

// SetInFlight sets the number of running items in a pool
func (c *Collector) SetInFlight(pool string, n int) {
	if c == nil {
		return
	}
	poolInFlight.WithLabelValues(pool).Set(float64(n))
}

// RecordPoolItem records a completed pool item
func (c *Collector) RecordPoolItem(pool string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	poolItemDuration.WithLabelValues(pool).Observe(duration.Seconds())
	poolItems.WithLabelValues(pool, status(success)).Inc()
}

// IncRound counts a finished round by the state it left the task in
func (c *Collector) IncRound(outcome string) {
	if c == nil {
		return
	}
	rounds.WithLabelValues(outcome).Inc()
}

// SetCandidates sets the accumulated candidate count
func (c *Collector) SetCandidates(n int) {
	if c == nil {
		return
	}
	candidatesAccumulated.Set(float64(n))
}

// RecordCheckpoint counts a checkpoint store operation
func (c *Collector) RecordCheckpoint(op string, success bool) {
	if c == nil {
		return
	}
	checkpointOps.WithLabelValues(op, status(success)).Inc()
}

// IncBudgetRestart counts a search backend restart
func (c *Collector) IncBudgetRestart() {
	if c == nil {
		return
	}
	budgetRestarts.Inc()
}

// Handler returns the HTTP handler exposing the default registry
func (c *Collector) Handler() http.Handler {
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
