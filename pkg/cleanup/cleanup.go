// Package cleanup prunes advisory records that expired long ago. Recently
// expired records are kept so they can still be served while the provider
// is throttled.
package cleanup

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// DefaultRetention is how long an expired record is kept for fallbacks.
const DefaultRetention = 90 * 24 * time.Hour

// Pruner deletes records whose expiry is older than cutoff.
type Pruner interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CleanupService struct {
	store     Pruner
	retention time.Duration
	interval  time.Duration
	clock     clockz.Clock
	logger    *zap.Logger
}

func NewCleanupService(store Pruner, retention, interval time.Duration, logger *zap.Logger) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CleanupService{
		store:     store,
		retention: retention,
		interval:  interval,
		clock:     clockz.RealClock,
		logger:    logger,
	}
}

func (s *CleanupService) WithClock(clock clockz.Clock) *CleanupService {
	s.clock = clock
	return s
}

// Run prunes immediately and then every interval until ctx is done. A
// non-positive interval prunes once.
func (s *CleanupService) Run(ctx context.Context) error {
	s.logger.Info("starting advisory cleanup",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval),
	)

	if _, err := s.PruneOnce(ctx); err != nil && s.interval <= 0 {
		return err
	}
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.PruneOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("stopping advisory cleanup")
			return nil
		}
	}
}

// PruneOnce deletes every record that expired more than the retention ago.
func (s *CleanupService) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)

	count, err := s.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("error pruning advisory records", zap.Error(err))
		return count, err
	}

	if count > 0 {
		s.logger.Info("pruned expired advisory records", zap.Int64("count", count), zap.Time("cutoff", cutoff))
	}
	return count, nil
}
