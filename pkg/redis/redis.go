package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"service-advisor/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps a pooled go-redis client. The pool redials broken
// connections on its own; the wrapper tracks health for reporting.
type Client struct {
	client      *redis.Client
	config      config.RedisConfig
	logger      *zap.Logger
	mu          sync.RWMutex
	isConnected bool
	lastPing    time.Time
}

type HealthStatus struct {
	IsConnected    bool          `json:"isConnected"`
	LastPing       time.Time     `json:"lastPing"`
	ResponseTime   time.Duration `json:"responseTime"`
	ConnectionInfo string        `json:"connectionInfo"`
	Error          string        `json:"error,omitempty"`
}

// NewClient creates a new Redis client with connection pooling
func NewClient(cfg config.RedisConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config: cfg,
		logger: logger.Named("redis"),
	}
	c.client = redis.NewClient(c.options())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if status := c.HealthCheck(ctx); status.IsConnected {
		c.logger.Info("redis connected", zap.String("addr", status.ConnectionInfo))
	} else {
		c.logger.Warn("redis connection test failed", zap.String("addr", status.ConnectionInfo), zap.String("error", status.Error))
	}

	return c
}

func (c *Client) options() *redis.Options {
	opt := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.config.Host, c.config.Port),
		Password: c.config.Password,
		DB:       c.config.DB,
	}

	if c.config.URL != "" {
		parsed, err := redis.ParseURL(c.config.URL)
		if err != nil {
			c.logger.Warn("failed to parse redis URL, falling back to host:port", zap.Error(err))
		} else {
			opt = parsed
		}
	}

	opt.PoolSize = c.config.PoolSize
	opt.MinIdleConns = c.config.MinIdleConns
	opt.MaxRetries = c.config.MaxRetries
	opt.MinRetryBackoff = c.config.RetryDelay
	opt.DialTimeout = c.config.DialTimeout
	opt.ReadTimeout = c.config.ReadTimeout
	opt.WriteTimeout = c.config.WriteTimeout
	opt.PoolTimeout = c.config.PoolTimeout
	return opt
}

// GetClient returns the Redis client instance
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// IsConnected returns the result of the last health check
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// HealthCheck pings Redis and returns detailed status
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		ConnectionInfo: c.client.Options().Addr,
	}

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	status.ResponseTime = time.Since(start)
	status.LastPing = time.Now()
	status.IsConnected = err == nil
	if err != nil {
		status.Error = err.Error()
	}

	c.mu.Lock()
	c.isConnected = status.IsConnected
	c.lastPing = status.LastPing
	c.mu.Unlock()

	return status
}

// Close gracefully shuts down the Redis client
func (c *Client) Close() error {
	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()
	return c.client.Close()
}

// GetConnectionStats returns connection pool statistics
func (c *Client) GetConnectionStats() map[string]interface{} {
	stats := c.client.PoolStats()
	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"totalConns":  stats.TotalConns,
		"idleConns":   stats.IdleConns,
		"staleConns":  stats.StaleConns,
		"isConnected": c.IsConnected(),
	}
}
