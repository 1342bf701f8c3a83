// Package cache holds the cache used when redis is not configured.
package cache

import (
	"context"
	"time"

	"github.com/sp3dr4/snip/internal/domain"
)

var _ domain.Cache = (*NoOpCache)(nil)

// NoOpCache misses every read and accepts every write, so the link service
// always falls through to the store.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache { return &NoOpCache{} }

func (*NoOpCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (*NoOpCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (*NoOpCache) Delete(context.Context, ...string) error { return nil }

func (*NoOpCache) Ping(context.Context) error { return nil }
