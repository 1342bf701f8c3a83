package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/snip/internal/domain"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisCache(client, "snip:", logger), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "code:abc123", `{"url":"https://example.com"}`, time.Hour))

	val, found, err := cache.Get(ctx, "code:abc123")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"url":"https://example.com"}`, val)

	// keys are namespaced and carry the ttl
	assert.True(t, mr.Exists("snip:code:abc123"))
	assert.Equal(t, time.Hour, mr.TTL("snip:code:abc123"))
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	val, found, err := cache.Get(context.Background(), "code:missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestRedisCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "code:abc123", "https://example.com", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := cache.Get(ctx, "code:abc123")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "code:abc123", "v1", time.Hour))
	require.NoError(t, cache.Set(ctx, "url:https://example.com", "v2", time.Hour))

	require.NoError(t, cache.Delete(ctx, "code:abc123", "url:https://example.com"))
	assert.False(t, mr.Exists("snip:code:abc123"))
	assert.False(t, mr.Exists("snip:url:https://example.com"))

	assert.NoError(t, cache.Delete(ctx))
}

func TestRedisCache_Unavailable(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	var cacheErr *domain.CacheError

	_, _, err := cache.Get(ctx, "code:abc123")
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, "get", cacheErr.Op)

	err = cache.Set(ctx, "code:abc123", "v", time.Hour)
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, "set", cacheErr.Op)

	err = cache.Delete(ctx, "code:abc123")
	require.True(t, errors.As(err, &cacheErr))

	assert.Error(t, cache.Ping(ctx))
}
