package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps one token bucket per key in process memory.
type MemoryRateLimiter struct {
	config   *Config
	clock    clockz.Clock
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	return &MemoryRateLimiter{
		config:   config,
		clock:    clockz.RealClock,
		limiters: make(map[string]*rate.Limiter),
	}
}

// WithClock sets the clock used for refills.
func (r *MemoryRateLimiter) WithClock(clock clockz.Clock) *MemoryRateLimiter {
	r.clock = clock
	return r
}

func (r *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	limiter := r.limiterFor(key)
	now := r.clock.Now()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, r.config.limit().WindowSize, nil
	}

	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0, nil
	}

	// Give the token back; the caller is told to wait instead.
	reservation.CancelAt(now)
	return false, delay, nil
}

func (r *MemoryRateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[key]; ok {
		return limiter
	}

	limit := r.config.limit()
	perSecond := rate.Limit(float64(limit.RequestsPerMinute) / 60)
	limiter := rate.NewLimiter(perSecond, limit.BurstSize)
	r.limiters[key] = limiter
	return limiter
}
