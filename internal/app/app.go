// Package app assembles the advisor from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"service-advisor/internal/config"
	"service-advisor/internal/repository"
	"service-advisor/internal/services"
	"service-advisor/pkg/advisor"
	"service-advisor/pkg/cache"
	"service-advisor/pkg/cleanup"
	"service-advisor/pkg/database"
	"service-advisor/pkg/ratelimit"
	"service-advisor/pkg/redis"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// providerKey is the limiter key shared by every Gemini call.
const providerKey = "gemini"

type App struct {
	Maintenance *services.MaintenanceService
	Advisory    *services.AdvisoryService
	Cleanup     *cleanup.CleanupService
	Vehicles    *repository.VehicleRepository
	History     *repository.MaintenanceRepository

	db     *mongo.Database
	redis  *redis.Client
	logger *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Connect(ctx, cfg.MongoURI, logger)
	if err != nil {
		return nil, err
	}

	a := &App{db: db, logger: logger}
	if cfg.UsesRedis() {
		a.redis = redis.NewClient(cfg.Redis, logger)
	}

	vehicles := repository.NewVehicleRepository(db)
	history := repository.NewMaintenanceRepository(db)

	store := a.advisoryStore(cfg)
	adv, err := NewAdvisor(cfg, store, a.limiter(cfg), logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Maintenance = services.NewMaintenanceService(vehicles, history, logger.Named("maintenance"))
	a.Advisory = services.NewAdvisoryService(adv, vehicles, logger.Named("advisory"))
	a.Vehicles = vehicles
	a.History = history
	a.Cleanup = cleanup.NewCleanupService(store, cfg.Advisor.Retention, cfg.Advisor.PruneInterval, logger.Named("cleanup"))
	return a, nil
}

// recordStore is satisfied by both advisory store backends.
type recordStore interface {
	advisor.Store
	cleanup.Pruner
}

func (a *App) advisoryStore(cfg *config.Config) recordStore {
	if cfg.Advisor.Store == config.StoreRedis {
		return cache.NewAdvisoryStore(a.redis, cache.StoreConfig{KeyPrefix: cfg.Advisor.KeyPrefix})
	}
	return repository.NewAdvisoryRepository(a.db)
}

func (a *App) limiter(cfg *config.Config) ratelimit.Limiter {
	rlConfig := LimiterConfig(cfg.Advisor)
	if !cfg.Advisor.AIEnabled || !rlConfig.Enabled {
		return ratelimit.Noop{}
	}
	if cfg.Advisor.Limiter == config.LimiterRedis {
		return ratelimit.NewRedisRateLimiter(a.redis.GetClient(), rlConfig)
	}
	return ratelimit.NewMemoryRateLimiter(rlConfig)
}

// LimiterConfig maps the provider quota settings onto a limiter config.
// A non-positive rate disables limiting.
func LimiterConfig(cfg config.AdvisorConfig) *ratelimit.Config {
	rlConfig := ratelimit.DefaultConfig()
	rlConfig.Limit.RequestsPerMinute = cfg.RequestsPerMinute
	rlConfig.Limit.BurstSize = cfg.Burst
	rlConfig.RedisKeyPrefix = cfg.KeyPrefix + "ratelimit:"
	rlConfig.Enabled = cfg.RequestsPerMinute > 0
	return rlConfig
}

// NewAdvisor builds the advisory chain. With AI disabled every answer is
// static; otherwise Gemini sits behind the quota guard and the cache.
func NewAdvisor(cfg *config.Config, store advisor.Store, limiter ratelimit.Limiter, logger *zap.Logger) (advisor.Advisor, error) {
	if !cfg.Advisor.AIEnabled {
		logger.Info("AI advice disabled, using static advisor")
		return advisor.NewStaticAdvisor(), nil
	}
	if store == nil {
		return nil, errors.New("advisory store is required when AI is enabled")
	}

	gemini := advisor.NewGeminiAdvisor(advisor.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, logger.Named("gemini"))

	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	inner := advisor.NewThrottledAdvisor(gemini, limiter, providerKey, logger)

	logger.Info("AI advice enabled",
		zap.String("model", cfg.Gemini.Model),
		zap.String("store", cfg.Advisor.Store),
		zap.Bool("coalesce", cfg.Advisor.Coalesce),
	)

	return advisor.NewCachingAdvisor(inner, store,
		advisor.WithLogger(logger.Named("cache")),
		advisor.WithCoalescing(cfg.Advisor.Coalesce),
	), nil
}

// Close releases Redis and MongoDB connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.db != nil {
		if err := database.Disconnect(a.db.Client()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
