package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pocketbook/internal/amqp"
	"pocketbook/internal/analytics"
	"pocketbook/internal/auth"
	"pocketbook/internal/backend"
	"pocketbook/internal/cache"
	"pocketbook/internal/cli"
	"pocketbook/internal/config"
	apphttp "pocketbook/internal/http"
	"pocketbook/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := config.Load()
	logger := cli.SetupLogger(bootstrap.LogLevel, bootstrap.LogFormat)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	repos := result.Repositories

	store, closeStore, manager := setupCache(ctx, cfg, logger)

	// Ledger events are optional for the API; without a broker they are skipped.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)
	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Services:           services.New(repos, tokens, publisher, logger),
		Analytics:          analytics.NewEngine(repos.Transactions, repos.Budgets, repos.Pockets, logger),
		Tokens:             tokens,
		Cache:              cache.NewGateway(store, logger),
		Health:             repos.Health,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if manager != nil {
			manager.Stop()
		}
		if closeStore != nil {
			if err := closeStore(); err != nil {
				logger.Error("Failed to close cache store", "error", err)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", "error", err)
		}
	})

	logger.Info("Starting pocketbook server", "addr", cfg.Addr(), "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "addr", cfg.Addr())
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// setupCache prefers Redis and falls back to the in-process LRU store when
// Redis is disabled or unreachable.
func setupCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func() error, *cache.Manager) {
	if cfg.RedisEnabled {
		rs, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			logger.Info("Redis cache connected", "addr", cfg.RedisAddr)
			return rs, rs.Close, nil
		}
		logger.Warn("Redis unavailable, using in-memory cache", "error", err, "addr", cfg.RedisAddr)
	}

	mem := cache.NewMemoryStore(cfg.CacheMaxEntries)
	manager := cache.NewManager()
	manager.Register(mem)
	manager.StartCleanup(time.Minute)
	logger.Info("In-memory cache enabled", "max_entries", cfg.CacheMaxEntries)
	return mem, nil, manager
}
