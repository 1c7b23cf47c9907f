// Package cache provides a short-lived cache for per-type consent
// decisions, keyed by user and consent type.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store caches resolved consent decisions. A miss is reported via the
// second return value, never as an error.
type Store interface {
	GetBool(ctx context.Context, key string) (bool, bool, error)
	SetBool(ctx context.Context, key string, value bool, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ConsentKey builds the cache key for one user's decision on one type
func ConsentKey(userID, consentType string) string {
	return fmt.Sprintf("user_consent_%s_%s", userID, consentType)
}

// RedisStore implements Store on a redis client
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisStore creates a redis-backed cache store
func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

// GetBool fetches a cached decision. The second return value is false
// on a miss.
func (s *RedisStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return val == "1", true, nil
}

// SetBool stores a decision with a TTL
func (s *RedisStore) SetBool(ctx context.Context, key string, value bool, ttl time.Duration) error {
	val := "0"
	if value {
		val = "1"
	}
	if err := s.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes cached decisions. Missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Ping verifies the redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
