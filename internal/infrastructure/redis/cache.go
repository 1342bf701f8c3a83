package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/snip/internal/domain"
)

type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func NewRedisCache(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	fullKey := c.buildKey(key)

	val, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Cache miss is not an error
			return "", false, nil
		}
		c.logger.Debug("Failed to get from cache", "key", fullKey, "error", err)
		return "", false, &domain.CacheError{Op: "get", Key: key, Err: err}
	}

	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	fullKey := c.buildKey(key)

	if err := c.client.Set(ctx, fullKey, value, ttl).Err(); err != nil {
		c.logger.Debug("Failed to set cache", "key", fullKey, "error", err)
		return &domain.CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = c.buildKey(key)
	}

	if err := c.client.Del(ctx, fullKeys...).Err(); err != nil {
		c.logger.Debug("Failed to delete from cache", "keys", fullKeys, "error", err)
		return &domain.CacheError{Op: "delete", Key: keys[0], Err: err}
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return &domain.CacheError{Op: "ping", Err: err}
	}
	return nil
}

func (c *RedisCache) buildKey(key string) string {
	return c.prefix + key
}
