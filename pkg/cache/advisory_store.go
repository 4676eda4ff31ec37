package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"service-advisor/internal/models"

	redisClient "github.com/redis/go-redis/v9"
)

const (
	fieldPayload   = "payload"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// RedisAdvisoryStore keeps one hash per (vehicle, area). Keys carry no Redis
// expiry: expired records stay readable for throttled fallbacks.
type RedisAdvisoryStore struct {
	client *redisClient.Client
	config StoreConfig
}

func NewRedisAdvisoryStore(client *redisClient.Client, config StoreConfig) *RedisAdvisoryStore {
	return &RedisAdvisoryStore{
		client: client,
		config: config,
	}
}

// Find returns nil, nil on a cache miss.
func (s *RedisAdvisoryStore) Find(ctx context.Context, vehicleID int64, area models.ServiceArea) (*models.AdvisoryRecord, error) {
	key := s.buildKey(vehicleID, area)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get advisory from cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	// An unreadable timestamp leaves the zero time: the record reads as
	// expired but its payload can still be served stale.
	createdAt, _ := parseTimestamp(fields[fieldCreatedAt])
	expiresAt, _ := parseTimestamp(fields[fieldExpiresAt])

	return &models.AdvisoryRecord{
		VehicleID: vehicleID,
		Area:      area,
		Payload:   fields[fieldPayload],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Upsert overwrites every field of the key in a single HSET.
func (s *RedisAdvisoryStore) Upsert(ctx context.Context, record *models.AdvisoryRecord) error {
	key := s.buildKey(record.VehicleID, record.Area)

	err := s.client.HSet(ctx, key,
		fieldPayload, record.Payload,
		fieldCreatedAt, formatTimestamp(record.CreatedAt),
		fieldExpiresAt, formatTimestamp(record.ExpiresAt),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set advisory in cache: %w", err)
	}
	return nil
}

// DeleteExpiredBefore scans the store's keys and removes records whose expiry
// is older than cutoff. Records with unreadable timestamps are removed too.
func (s *RedisAdvisoryStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, s.config.KeyPrefix+"advisory:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.HGet(ctx, key, fieldExpiresAt).Result()
		if err != nil && !errors.Is(err, redisClient.Nil) {
			return deleted, fmt.Errorf("failed to read %s: %w", key, err)
		}

		expiresAt, parseErr := parseTimestamp(raw)
		if parseErr == nil && !expiresAt.Before(cutoff) {
			continue
		}

		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan advisory keys: %w", err)
	}
	return deleted, nil
}

func (s *RedisAdvisoryStore) buildKey(vehicleID int64, area models.ServiceArea) string {
	return fmt.Sprintf("%sadvisory:%d:%s", s.config.KeyPrefix, vehicleID, area)
}

func formatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTimestamp(raw string) (time.Time, error) {
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}
