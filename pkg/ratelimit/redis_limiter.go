package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/clockz"
)

// Fixed window counter. Returns {allowed, milliseconds until the window resets}.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local quota = tonumber(ARGV[1])
	local window_size = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local count = tonumber(redis.call('HGET', key, 'count')) or 0
	local window_start = tonumber(redis.call('HGET', key, 'window_start')) or now

	if now - window_start >= window_size then
		count = 0
		window_start = now
	end

	local allowed = count < quota
	if allowed then
		count = count + 1
	end

	local reset_ms = 0
	if not allowed then
		reset_ms = (window_start + window_size) - now
	end

	redis.call('HSET', key, 'count', count, 'window_start', window_start)
	redis.call('PEXPIRE', key, window_size)

	return {allowed and 1 or 0, reset_ms}
`)

// RedisRateLimiter shares one quota across every process using the same Redis.
// Each window admits RequestsPerMinute scaled to the window size, the same
// sustained rate the memory limiter refills at.
type RedisRateLimiter struct {
	client *redis.Client
	config *Config
	clock  clockz.Clock
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client, config *Config) *RedisRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	return &RedisRateLimiter{
		client: client,
		config: config,
		clock:  clockz.RealClock,
	}
}

// WithClock sets the clock that timestamps window starts.
func (r *RedisRateLimiter) WithClock(clock clockz.Clock) *RedisRateLimiter {
	r.clock = clock
	return r
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	limit := r.config.limit()
	redisKey := r.config.RedisKeyPrefix + key

	result, err := fixedWindowScript.Run(ctx, r.client, []string{redisKey},
		limit.windowQuota(),
		limit.WindowSize.Milliseconds(),
		r.clock.Now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected script result format")
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(result[1]) * time.Millisecond, nil
}
