package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo = "mongo"
	StoreRedis = "redis"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

type Config struct {
	MongoURI string
	Redis    RedisConfig
	Advisor  AdvisorConfig
	Gemini   GeminiConfig
	Log      LogConfig
}

type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	RetryDelay   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

type AdvisorConfig struct {
	// AIEnabled selects the network provider; otherwise advice is static.
	AIEnabled bool
	Store     string
	KeyPrefix string
	Coalesce  bool

	// Retention keeps expired records around for throttled fallbacks.
	Retention     time.Duration
	PruneInterval time.Duration

	RequestsPerMinute int
	Burst             int
	Limiter           string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"mongo.uri": "mongodb://localhost:27017/service_advisor",

	"redis.url":            "",
	"redis.host":           "localhost",
	"redis.port":           "6379",
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      10,
	"redis.min_idle_conns": 2,
	"redis.max_retries":    3,
	"redis.retry_delay":    "100ms",
	"redis.dial_timeout":   "5s",
	"redis.read_timeout":   "3s",
	"redis.write_timeout":  "3s",
	"redis.pool_timeout":   "4s",

	"ai.enabled":              false,
	"advisory.store":          StoreMongo,
	"advisory.key_prefix":     "advisor:",
	"advisory.coalesce":       false,
	"advisory.retention":      "2160h",
	"advisory.prune_interval": "0s",

	"provider.rpm":     10,
	"provider.burst":   5,
	"provider.limiter": LimiterMemory,

	"gemini.api_key":  "",
	"gemini.model":    "gemini-2.5-flash",
	"gemini.base_url": "https://generativelanguage.googleapis.com/v1beta",
	"gemini.timeout":  "30s",

	"log.level":  "info",
	"log.format": "console",
}

// Load reads configuration from the environment. Each env file that exists
// is loaded first without overriding variables already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		MongoURI: v.GetString("mongo.uri"),
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			Host:         v.GetString("redis.host"),
			Port:         v.GetString("redis.port"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			MaxRetries:   v.GetInt("redis.max_retries"),
			RetryDelay:   v.GetDuration("redis.retry_delay"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			PoolTimeout:  v.GetDuration("redis.pool_timeout"),
		},
		Advisor: AdvisorConfig{
			AIEnabled:         v.GetBool("ai.enabled"),
			Store:             strings.ToLower(v.GetString("advisory.store")),
			KeyPrefix:         v.GetString("advisory.key_prefix"),
			Coalesce:          v.GetBool("advisory.coalesce"),
			Retention:         v.GetDuration("advisory.retention"),
			PruneInterval:     v.GetDuration("advisory.prune_interval"),
			RequestsPerMinute: v.GetInt("provider.rpm"),
			Burst:             v.GetInt("provider.burst"),
			Limiter:           strings.ToLower(v.GetString("provider.limiter")),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
			Timeout: v.GetDuration("gemini.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is not set"))
	}
	if c.Advisor.AIEnabled && c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required when AI_ENABLED is true"))
	}
	switch c.Advisor.Store {
	case StoreMongo, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("ADVISORY_STORE must be %q or %q, got %q", StoreMongo, StoreRedis, c.Advisor.Store))
	}
	switch c.Advisor.Limiter {
	case LimiterMemory, LimiterRedis:
	default:
		errs = append(errs, fmt.Errorf("PROVIDER_LIMITER must be %q or %q, got %q", LimiterMemory, LimiterRedis, c.Advisor.Limiter))
	}
	if c.Advisor.RequestsPerMinute < 0 || c.Advisor.Burst < 0 {
		errs = append(errs, errors.New("PROVIDER_RPM and PROVIDER_BURST must not be negative"))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Advisor.Store == StoreRedis || (c.Advisor.AIEnabled && c.Advisor.Limiter == LimiterRedis)
}
