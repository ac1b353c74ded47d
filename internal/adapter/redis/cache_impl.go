package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/page-insight-service/internal/repository"
)

// PageCacheRepoImpl provides a concrete implementation for the PageCacheRepository interface using Redis.
type PageCacheRepoImpl struct {
	client *redis.Client
}

// NewPageCacheRepo creates a new instance of PageCacheRepoImpl.
func NewPageCacheRepo(client *redis.Client) *PageCacheRepoImpl {
	return &PageCacheRepoImpl{client: client}
}

// Get returns the value stored under key. Keys are used verbatim.
func (r *PageCacheRepoImpl) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Put stores value under key; SET with EX replaces any previous value and its TTL atomically.
func (r *PageCacheRepoImpl) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the Redis connection.
func (r *PageCacheRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
