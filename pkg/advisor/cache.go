package advisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"service-advisor/internal/models"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TTL is how long a cached answer is served without asking the provider.
const TTL = 7 * 24 * time.Hour

// Store persists one advisory record per (vehicle, area).
type Store interface {
	// Find returns nil, nil when nothing is stored for the key.
	Find(ctx context.Context, vehicleID int64, area models.ServiceArea) (*models.AdvisoryRecord, error)
	// Upsert replaces the record for the key, creating it if needed.
	Upsert(ctx context.Context, record *models.AdvisoryRecord) error
}

// CachingAdvisor serves answers from a Store and refreshes them from the
// wrapped Advisor once they expire. Expired records are kept and served
// while the provider is rate limited. Degraded answers are returned to the
// caller but never stored, so the next call asks the provider again.
type CachingAdvisor struct {
	inner    Advisor
	store    Store
	clock    clockz.Clock
	logger   *zap.Logger
	coalesce bool
	group    singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
}

type Option func(*CachingAdvisor)

func WithClock(clock clockz.Clock) Option {
	return func(c *CachingAdvisor) { c.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *CachingAdvisor) { c.logger = logger }
}

// WithCoalescing makes concurrent misses on the same key share a single
// provider call.
func WithCoalescing(enabled bool) Option {
	return func(c *CachingAdvisor) { c.coalesce = enabled }
}

func NewCachingAdvisor(inner Advisor, store Store, opts ...Option) *CachingAdvisor {
	c := &CachingAdvisor{
		inner:   inner,
		store:   store,
		clock:   clockz.RealClock,
		logger:  zap.NewNop(),
		waiters: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c *CachingAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	now := c.clock.Now()
	logger := c.logger.With(
		zap.Int64("vehicleId", query.VehicleID),
		zap.String("area", string(query.Area)),
	)

	previous, err := c.store.Find(ctx, query.VehicleID, query.Area)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("advisory store read failed, treating as miss", zap.Error(err))
		previous = nil
	}

	switch {
	case previous == nil:
		cacheLookups.WithLabelValues(lookupMiss).Inc()
	case previous.IsFresh(now):
		cached, err := DecodeResult(previous.Payload)
		if err == nil {
			cacheLookups.WithLabelValues(lookupHit).Inc()
			logger.Debug("advisory cache hit")
			return cached, nil
		}
		cacheLookups.WithLabelValues(lookupCorrupt).Inc()
		logger.Warn("cached advisory unreadable, refreshing", zap.Error(err))
	default:
		cacheLookups.WithLabelValues(lookupExpired).Inc()
	}

	logger.Info("advisory cache miss, asking provider")

	fresh, err := c.fetch(ctx, query, now)
	if err != nil {
		if IsRateLimited(err) {
			logger.Warn("advisory provider throttled", zap.Error(err))
			return c.throttledAnswer(previous), nil
		}
		return nil, err
	}

	return fresh, nil
}

func (c *CachingAdvisor) fetch(ctx context.Context, query models.AdvisoryQuery, now time.Time) (*models.AdvisoryResult, error) {
	if !c.coalesce {
		return c.refresh(ctx, query, now, ctx.Err)
	}

	key := fmt.Sprintf("%d:%s", query.VehicleID, query.Area)
	c.join(key)
	defer c.leave(key)

	// The shared call outlives any single waiter; each waiter only gives up
	// on its own context.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.refresh(shared, query, now, func() error {
			if c.abandoned(key) {
				return context.Canceled
			}
			return nil
		})
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AdvisoryResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CachingAdvisor) join(key string) {
	c.mu.Lock()
	c.waiters[key]++
	c.mu.Unlock()
}

func (c *CachingAdvisor) leave(key string) {
	c.mu.Lock()
	if c.waiters[key]--; c.waiters[key] <= 0 {
		delete(c.waiters, key)
	}
	c.mu.Unlock()
}

// abandoned reports whether every caller waiting on key has gone.
func (c *CachingAdvisor) abandoned(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key] == 0
}

// refresh calls the provider and stores a successful answer. gone reports
// a non-nil error once nobody is waiting for the answer; the write is
// skipped then.
func (c *CachingAdvisor) refresh(ctx context.Context, query models.AdvisoryQuery, now time.Time, gone func() error) (*models.AdvisoryResult, error) {
	start := c.clock.Now()
	fresh, err := c.inner.GetAdvice(ctx, query)
	if err == nil && fresh == nil {
		err = fmt.Errorf("advisory provider returned no result")
	}
	providerDuration.WithLabelValues(outcome(fresh, err)).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if fresh.Degraded {
		return fresh, nil
	}

	if err := gone(); err != nil {
		return nil, err
	}

	payload, err := EncodeResult(fresh)
	if err != nil {
		return nil, err
	}

	record := &models.AdvisoryRecord{
		VehicleID: query.VehicleID,
		Area:      query.Area,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
	if err := c.store.Upsert(ctx, record); err != nil {
		c.logger.Error("failed to store advisory",
			zap.Int64("vehicleId", query.VehicleID),
			zap.String("area", string(query.Area)),
			zap.Error(err),
		)
	}

	return fresh, nil
}

// throttledAnswer prefers the last stored answer, however old, over a
// static notice.
func (c *CachingAdvisor) throttledAnswer(previous *models.AdvisoryRecord) *models.AdvisoryResult {
	if previous != nil {
		if stale, err := DecodeResult(previous.Payload); err == nil {
			cacheFallbacks.WithLabelValues(fallbackStale).Inc()
			return stale
		}
	}
	cacheFallbacks.WithLabelValues(fallbackStatic).Inc()
	return ThrottledResult()
}

func outcome(result *models.AdvisoryResult, err error) string {
	switch {
	case IsRateLimited(err):
		return outcomeThrottled
	case err != nil:
		return outcomeError
	case result.Degraded:
		return outcomeDegraded
	default:
		return outcomeSuccess
	}
}
