package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/page-insight-service/internal/repository"
)

const cleanupInterval = 10 * time.Minute

// PageCacheRepoImpl keeps page results in process memory. Entries are lost on restart
// and are not shared between replicas.
type PageCacheRepoImpl struct {
	cache *cache.Cache
}

// NewPageCacheRepo creates an in-memory cache whose janitor purges expired entries periodically.
func NewPageCacheRepo() *PageCacheRepoImpl {
	return &PageCacheRepoImpl{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (r *PageCacheRepoImpl) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, found := r.cache.Get(key)
	if !found {
		return "", repository.ErrCacheMiss
	}
	s, ok := val.(string)
	if !ok {
		return "", repository.ErrCacheMiss
	}
	return s, nil
}

func (r *PageCacheRepoImpl) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cache.Set(key, value, ttl)
	return nil
}

func (r *PageCacheRepoImpl) Ping(context.Context) error {
	return nil
}
