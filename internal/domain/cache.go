package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a raw value. A miss is reported as found == false with a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a value with the specified TTL
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes keys from cache
	Delete(ctx context.Context, keys ...string) error

	// Ping checks if the cache is available
	Ping(ctx context.Context) error
}

// CodeKey is the cache key of the snapshot stored for a short code.
func CodeKey(code string) string {
	return "code:" + code
}

// URLKey is the cache key of the snapshot stored for a target URL.
func URLKey(url string) string {
	return "url:" + url
}
