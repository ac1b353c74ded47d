package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/pkg/metrics"
	"github.com/user/page-insight-service/pkg/utils"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "page:"

// DefaultCacheTTL is how long a page result stays authoritative.
const DefaultCacheTTL = 30 * 24 * time.Hour

// CacheKey returns the cache key for a target URL. The URL is used verbatim.
func CacheKey(targetURL string) string {
	return cacheKeyPrefix + targetURL
}

// PageInsight fetches, analyzes and memoizes web pages.
type PageInsight interface {
	Handle(ctx context.Context, targetURL string) (*entity.ResponseData, error)
}

// PageInsightOptions tunes the orchestrator.
type PageInsightOptions struct {
	CacheTTL        time.Duration
	PageLoadTimeout time.Duration
}

type pageInsightUseCase struct {
	cache    repository.PageCacheRepository
	pool     *SessionPool
	analyzer *Analyzer
	opts     PageInsightOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewPageInsight creates the cache-aside page insight use case.
func NewPageInsight(
	cache repository.PageCacheRepository,
	pool *SessionPool,
	analyzer *Analyzer,
	opts PageInsightOptions,
	logger *zap.Logger,
) PageInsight {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &pageInsightUseCase{
		cache:    cache,
		pool:     pool,
		analyzer: analyzer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle returns the cached result for targetURL, or runs the pipeline once
// and caches its result.
func (uc *pageInsightUseCase) Handle(ctx context.Context, targetURL string) (*entity.ResponseData, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, newPipelineError(ErrBadRequest, errors.New("missing url"))
	}
	if _, err := utils.ParseTargetURL(targetURL); err != nil {
		return nil, newPipelineError(ErrBadRequest, fmt.Errorf("invalid url %q: %w", targetURL, err))
	}

	key := CacheKey(targetURL)
	if cached, ok := uc.lookup(ctx, key); ok {
		uc.logger.Info("Serving page from cache", zap.String("url", targetURL))
		return cached, nil
	}

	startTime := time.Now()
	resp, err := uc.run(ctx, targetURL, key)
	duration := time.Since(startTime)

	if err != nil {
		errorType := ErrorType(err)
		metrics.PipelineDuration.WithLabelValues("failure").Observe(duration.Seconds())
		metrics.PipelineFailuresTotal.WithLabelValues(errorType).Inc()
		uc.logger.Error("Page pipeline failed",
			zap.String("url", targetURL),
			zap.String("error_type", errorType),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.PipelineDuration.WithLabelValues("success").Observe(duration.Seconds())
	uc.logger.Info("Page pipeline completed", zap.String("url", targetURL), zap.Int64("duration_ms", duration.Milliseconds()))
	return resp, nil
}

func (uc *pageInsightUseCase) lookup(ctx context.Context, key string) (*entity.ResponseData, bool) {
	value, err := uc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
			return nil, false
		}
		// Cache outages are served as misses.
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		uc.logger.Warn("Cache lookup failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var resp entity.ResponseData
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		uc.logger.Warn("Cached value is corrupt, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return &resp, true
}

func (uc *pageInsightUseCase) run(ctx context.Context, targetURL, key string) (*entity.ResponseData, error) {
	var resp *entity.ResponseData

	err := uc.pool.WithLease(ctx, func(ctx context.Context, lease *Lease) error {
		html, err := uc.render(ctx, lease, targetURL)
		if err != nil {
			return newPipelineError(ErrRender, err)
		}

		data, err := Extract(html, targetURL)
		if err != nil {
			return newPipelineError(ErrRender, err)
		}

		analysis, err := uc.analyzer.Analyze(ctx, data)
		if err != nil {
			return newPipelineError(ErrDownstream, err)
		}

		resp = &entity.ResponseData{
			Meta: entity.ResponseMeta{
				Title:       data.Title,
				Description: data.MetaDescription,
				CachedAt:    uc.now().UTC(),
			},
			Summary:  analysis.Summary,
			Logos:    analysis.Classification.Logos,
			Favicons: analysis.Classification.Favicons,
		}

		uc.store(ctx, key, resp)
		return nil
	})
	if err != nil {
		var pipelineErr *PipelineError
		if !errors.As(err, &pipelineErr) {
			// WithLease only returns unclassified errors when acquisition itself failed.
			err = newPipelineError(ErrAcquisition, err)
		}
		return nil, err
	}
	return resp, nil
}

func (uc *pageInsightUseCase) render(ctx context.Context, lease *Lease, targetURL string) (string, error) {
	if uc.opts.PageLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.PageLoadTimeout)
		defer cancel()
	}

	page, err := lease.OpenPage(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.Navigate(ctx, targetURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", targetURL, err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// store writes resp back to the cache. Failures are logged and counted but
// never fail the request.
func (uc *pageInsightUseCase) store(ctx context.Context, key string, resp *entity.ResponseData) {
	payload, err := json.Marshal(resp)
	if err == nil {
		err = uc.cache.Put(ctx, key, string(payload), uc.opts.CacheTTL)
	}
	if err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		uc.logger.Warn("Failed to write page to cache", zap.String("key", key), zap.Error(err))
	}
}
