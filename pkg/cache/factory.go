package cache

import (
	"service-advisor/pkg/redis"
)

// NewAdvisoryStore creates an advisory store on the shared Redis client
func NewAdvisoryStore(client *redis.Client, config StoreConfig) *RedisAdvisoryStore {
	return NewRedisAdvisoryStore(client.GetClient(), config)
}
