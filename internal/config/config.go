package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr string
	// RateLimitInterval throttles per-client-IP submissions; zero disables.
	RateLimitInterval time.Duration
}

type Store struct {
	// DatabaseURL empty selects the in-memory store (dev mode).
	DatabaseURL string
}

type Cache struct {
	// RedisAddr empty selects the in-memory cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BookTTL       time.Duration
}

type Config struct {
	HTTP     HTTP
	Store    Store
	Cache    Cache
	LogLevel string
}

func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:              ":8080",
			RateLimitInterval: 0,
		},
		Cache: Cache{
			BookTTL: 5 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from .env (if present) and the environment.
// Priority: ENV > .env file > defaults.
func Load() Config {
	cfg := Default()
	_ = godotenv.Load()

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.RateLimitInterval = getEnvDuration("RATE_LIMIT_INTERVAL", cfg.HTTP.RateLimitInterval)
	cfg.Store.DatabaseURL = getEnv("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = getEnvInt("REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.BookTTL = getEnvDuration("BOOK_CACHE_TTL", cfg.Cache.BookTTL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
