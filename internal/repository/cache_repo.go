package repository

import (
	"context"
	"time"
)

// PageCacheRepository defines the key-value store used to memoize pipeline results.
type PageCacheRepository interface {
	// Get returns the stored value for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Put stores value under key, replacing any previous value, for the given TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
