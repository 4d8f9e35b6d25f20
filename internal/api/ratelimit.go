package api

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// limiterEntry remembers the rate a limiter was created with
type limiterEntry struct {
	limiter *rate.Limiter
	rpm     int
}

// RateLimiterPool hands out one limiter per endpoint and model, so every
// judge calling the same model shares its request budget
type RateLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]limiterEntry
	logger   *slog.Logger
}

// NewRateLimiterPool creates an empty pool
func NewRateLimiterPool(logger *slog.Logger) *RateLimiterPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiterPool{
		limiters: make(map[string]limiterEntry),
		logger:   logger,
	}
}

// GetOrCreate returns the limiter for key. The first caller fixes the rate;
// a later caller asking for a different rate gets the existing limiter.
// A non-positive rate means unlimited.
func (p *RateLimiterPool) GetOrCreate(key string, requestsPerMinute int) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.limiters[key]; ok {
		if e.rpm != requestsPerMinute {
			p.logger.Warn("Rate limiter already exists with a different rate, keeping it",
				"model_id", key,
				"existing_rpm", e.rpm,
				"requested_rpm", requestsPerMinute)
		}
		return e.limiter
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	burst := max(1, requestsPerMinute/5)
	limiter := rate.NewLimiter(limit, burst)
	p.limiters[key] = limiterEntry{limiter: limiter, rpm: requestsPerMinute}

	p.logger.Debug("Created rate limiter", "model_id", key, "rpm", requestsPerMinute, "burst", burst)
	return limiter
}

// Wait blocks until key's limiter admits one request or ctx ends
func (p *RateLimiterPool) Wait(ctx context.Context, key string, requestsPerMinute int) error {
	return p.GetOrCreate(key, requestsPerMinute).Wait(ctx)
}
