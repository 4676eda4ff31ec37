package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"service-advisor/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestThrottledAdvisor(t *testing.T) {
	config := ratelimit.DefaultConfig()
	config.Limit = ratelimit.RateLimit{RequestsPerMinute: 1, BurstSize: 1, WindowSize: time.Minute}

	t.Run("denied call is rate limited", func(t *testing.T) {
		limiter := ratelimit.NewMemoryRateLimiter(config).WithClock(clockz.NewFakeClock())
		inner := new(MockAdvisor)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("ok"), nil).Once()

		throttled := NewThrottledAdvisor(inner, limiter, "gemini", nil)

		result, err := throttled.GetAdvice(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Summary)

		_, err = throttled.GetAdvice(context.Background(), testQuery())
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))

		var rateErr *RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, time.Minute, rateErr.RetryAfter)
		inner.AssertExpectations(t)
	})

	t.Run("limiter failure lets the call through", func(t *testing.T) {
		inner := new(MockAdvisor)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("ok"), nil).Once()

		throttled := NewThrottledAdvisor(inner, failingLimiter{}, "gemini", nil)
		result, err := throttled.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, "ok", result.Summary)
	})

	t.Run("cache falls back when local quota is spent", func(t *testing.T) {
		limiter := ratelimit.NewMemoryRateLimiter(config).WithClock(clockz.NewFakeClock())
		inner := new(MockAdvisor)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("ok"), nil).Once()

		store := new(MockStore)
		store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		cached := NewCachingAdvisor(NewThrottledAdvisor(inner, limiter, "gemini", nil), store)

		_, err := cached.GetAdvice(context.Background(), testQuery())
		require.NoError(t, err)

		result, err := cached.GetAdvice(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Equal(t, ThrottledResult(), result)
	})
}
