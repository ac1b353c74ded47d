package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/page-insight-service/internal/repository"
)

// PageCacheRepoImpl provides a concrete implementation for the PageCacheRepository interface using PostgreSQL.
type PageCacheRepoImpl struct {
	db *pgxpool.Pool
}

// NewPageCacheRepo creates a new instance of PageCacheRepoImpl.
func NewPageCacheRepo(db *pgxpool.Pool) *PageCacheRepoImpl {
	return &PageCacheRepoImpl{db: db}
}

// EnsureSchema creates the page_cache table if it does not exist.
func (r *PageCacheRepoImpl) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS page_cache (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS page_cache_expires_at_idx ON page_cache (expires_at);
	`
	_, err := r.db.Exec(ctx, query)
	return err
}

// Get retrieves an unexpired value for key.
func (r *PageCacheRepoImpl) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM page_cache WHERE key = $1 AND expires_at > NOW();`

	var value string
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repository.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Put stores or replaces the value for key. Concurrent writers resolve as last write wins.
func (r *PageCacheRepoImpl) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO page_cache (key, value, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at;
	`
	_, err := r.db.Exec(ctx, query, key, value, ttl.Seconds())
	return err
}

// DeleteExpired removes entries past their expiry and returns how many were removed.
func (r *PageCacheRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM page_cache WHERE expires_at <= NOW();`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection.
func (r *PageCacheRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
