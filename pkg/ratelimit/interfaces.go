package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more call under key may proceed now. When it
// may not, the returned duration hints how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit defines the configuration for rate limiting
type RateLimit struct {
	RequestsPerMinute int           `json:"requestsPerMinute"`
	BurstSize         int           `json:"burstSize"`
	WindowSize        time.Duration `json:"windowSize"`
}

// Noop allows everything.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, time.Duration, error) {
	return true, 0, nil
}
