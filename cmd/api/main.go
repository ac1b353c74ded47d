package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/page-insight-service/internal/adapter/chromedp_browser"
	"github.com/user/page-insight-service/internal/adapter/memory"
	"github.com/user/page-insight-service/internal/adapter/openai_llm"
	"github.com/user/page-insight-service/internal/adapter/postgres"
	redis_adapter "github.com/user/page-insight-service/internal/adapter/redis"
	"github.com/user/page-insight-service/internal/delivery/http/handler"
	"github.com/user/page-insight-service/internal/delivery/http/router"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/internal/usecase"
	"github.com/user/page-insight-service/pkg/config"
	"github.com/user/page-insight-service/pkg/logger"
	"github.com/user/page-insight-service/pkg/metrics"
	"github.com/user/page-insight-service/pkg/useragent"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Hour
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	if err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the service and serves until a signal arrives or the listener
// fails. Every resource it opens is released before it returns.
func run(cfg *config.Config, log *zap.Logger) error {
	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Cache ---
	cache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s page cache: %w", cfg.CacheBackend, err)
	}
	defer closeCache()
	log.Info("page cache ready", zap.String("backend", cfg.CacheBackend))

	// --- Collaborators ---
	browser := chromedp_browser.NewBackend(chromedp_browser.Options{
		APIURL:     cfg.BrowserAPIURL,
		WSURL:      cfg.BrowserWSURL,
		Token:      cfg.BrowserAPIToken,
		UserAgents: useragent.NewRotator(),
	}, log.Named("browser"))

	llm, err := openai_llm.NewLanguageModel(openai_llm.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create language model client: %w", err)
	}

	// --- Use Cases ---
	pool := usecase.NewSessionPool(browser, browser, log.Named("pool"))
	analyzer := usecase.NewAnalyzer(llm, cfg.SummaryMaxTokens, log.Named("analysis"))
	pageInsight := usecase.NewPageInsight(cache, pool, analyzer, usecase.PageInsightOptions{
		CacheTTL:        cfg.CacheTTL(),
		PageLoadTimeout: cfg.PageLoadTimeoutDuration(),
	}, log.Named("pipeline"))

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(pageInsight, cache, log.Named("http"))
	httpRouter := router.New(apiHandler, router.Options{
		RequestTimeout:     cfg.RequestTimeoutDuration(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, log.Named("access"))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeoutDuration() + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var listenErr error
	select {
	case err := <-serverErr:
		listenErr = fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exiting")
	return listenErr
}

// openCache connects the configured cache backend and returns its cleanup.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.PageCacheRepository, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		return redis_adapter.NewPageCacheRepo(rdb), func() { rdb.Close() }, nil

	case config.CacheBackendPostgres:
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		repo := postgres.NewPageCacheRepo(dbpool)
		if err := repo.EnsureSchema(ctx); err != nil {
			dbpool.Close()
			return nil, nil, err
		}
		janitorCtx, stopJanitor := context.WithCancel(ctx)
		go runJanitor(janitorCtx, repo, log.Named("janitor"))
		return repo, func() {
			stopJanitor()
			dbpool.Close()
		}, nil

	case config.CacheBackendMemory:
		return memory.NewPageCacheRepo(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// runJanitor periodically purges expired rows; reads already ignore them.
func runJanitor(ctx context.Context, repo *postgres.PageCacheRepoImpl, log *zap.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Warn("failed to purge expired cache rows", zap.Error(err))
				continue
			}
			log.Debug("purged expired cache rows", zap.Int64("rows", n))
		}
	}
}
