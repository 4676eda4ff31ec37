package advisor

import (
	"context"

	"service-advisor/internal/models"
	"service-advisor/pkg/ratelimit"

	"go.uber.org/zap"
)

// ThrottledAdvisor enforces a local call quota in front of a provider. A
// denied call fails with *RateLimitError, exactly like an upstream 429.
type ThrottledAdvisor struct {
	inner   Advisor
	limiter ratelimit.Limiter
	key     string
	logger  *zap.Logger
}

func NewThrottledAdvisor(inner Advisor, limiter ratelimit.Limiter, key string, logger *zap.Logger) *ThrottledAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThrottledAdvisor{
		inner:   inner,
		limiter: limiter,
		key:     key,
		logger:  logger,
	}
}

func (t *ThrottledAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	allowed, retryAfter, err := t.limiter.Allow(ctx, t.key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Limiter outages must not block advice.
		t.logger.Warn("rate limiter unavailable, calling provider", zap.String("key", t.key), zap.Error(err))
		return t.inner.GetAdvice(ctx, query)
	}

	if !allowed {
		return nil, &RateLimitError{Provider: t.key, RetryAfter: retryAfter}
	}

	return t.inner.GetAdvice(ctx, query)
}
