package main

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crosspair/exchange/internal/adapter/cache"
	"github.com/crosspair/exchange/internal/adapter/in_memory"
	"github.com/crosspair/exchange/internal/adapter/pg"
	httpapi "github.com/crosspair/exchange/internal/api/http"
	"github.com/crosspair/exchange/internal/config"
	"github.com/crosspair/exchange/internal/core"
	"github.com/crosspair/exchange/internal/port"
	"github.com/crosspair/exchange/internal/signature"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer repo.Close()

	bookCache := newCache(cfg, logger)
	engine := core.NewEngine(repo, bookCache, logger)
	intake := core.NewIntake(repo, signature.NewRegistry(), engine, logger)

	server := httpapi.NewHTTPServer(intake, engine, logger, cfg.HTTP.RateLimitInterval)
	logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
	if err := server.Run(cfg.HTTP.Addr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		lv = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lv)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func newRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (port.Repository, error) {
	if cfg.Store.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return in_memory.NewMemoryRepo(), nil
	}
	repo, err := pg.NewPgRepo(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func newCache(cfg config.Config, logger *zap.Logger) port.Cache {
	if cfg.Cache.RedisAddr == "" {
		return in_memory.NewCache()
	}
	logger.Info("using redis book cache", zap.String("addr", cfg.Cache.RedisAddr))
	return cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.BookTTL)
}
