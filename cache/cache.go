// Package cache is a thin JSON cache over Redis used by the read-mostly
// repositories. Get reports a miss instead of an error so callers can always
// fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = 30 * time.Minute

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

func New(client *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Get unmarshals the cached value into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err = json.Unmarshal(data, dest); err != nil {
		// A corrupted entry is as good as a miss; drop it.
		c.logger.Warn("failed to decode cached value", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		return false, nil
	}

	return true, nil
}

// Set stores the value under key. An optional TTL overrides the default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl ...time.Duration) error {
	expiration := defaultTTL
	if len(ttl) > 0 {
		expiration = ttl[0]
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// Delete removes the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
