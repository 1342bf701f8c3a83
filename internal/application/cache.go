package application

import (
	"context"

	"github.com/sp3dr4/snip/internal/domain"
)

// cacheGet returns the cached snapshot for key, or nil on a miss, an
// undecodable payload or a cache failure.
func (s *LinkService) cacheGet(ctx context.Context, key string) *domain.Link {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.IncCacheErrors("get")
		s.log(ctx).Warn("Cache read failed, falling back to store", "key", key, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return domain.DecodeCachedLink(raw)
}

// cachePut reports whether the snapshot was written.
func (s *LinkService) cachePut(ctx context.Context, key string, link *domain.Link) bool {
	payload, err := domain.EncodeLink(link)
	if err != nil {
		s.log(ctx).Error("Failed to encode link for cache", "key", key, "error", err)
		return false
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.metrics.IncCacheErrors("set")
		s.log(ctx).Warn("Cache write failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *LinkService) cacheEvict(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.metrics.IncCacheErrors("delete")
		s.log(ctx).Warn("Cache eviction failed", "keys", keys, "error", err)
	}
}
