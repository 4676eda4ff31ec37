package ratelimit

import (
	"time"
)

// Config holds the configuration for rate limiting
type Config struct {
	// Limit applied to every key
	Limit RateLimit `json:"limit"`

	// Redis key prefix for rate limiting data
	RedisKeyPrefix string `json:"redisKeyPrefix"`

	// Enable/disable rate limiting
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns limits sized for a free-tier generative API quota.
func DefaultConfig() *Config {
	return &Config{
		Limit: RateLimit{
			RequestsPerMinute: 10,
			BurstSize:         5,
			WindowSize:        time.Minute,
		},
		RedisKeyPrefix: "ratelimit:",
		Enabled:        true,
	}
}

func (c *Config) limit() RateLimit {
	limit := c.Limit
	if limit.WindowSize <= 0 {
		limit.WindowSize = time.Minute
	}
	if limit.BurstSize <= 0 {
		limit.BurstSize = 1
	}
	return limit
}

// windowQuota is how many calls one fixed window admits: the per-minute rate
// scaled to the window, at least one. Without a rate the burst size is used.
func (l RateLimit) windowQuota() int {
	if l.RequestsPerMinute <= 0 {
		return l.BurstSize
	}
	quota := int(int64(l.RequestsPerMinute) * int64(l.WindowSize) / int64(time.Minute))
	return max(quota, 1)
}
