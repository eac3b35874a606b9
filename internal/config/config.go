package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"listing-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr    string
	CORSOrigins []string

	// Marketplace API
	MarketAPIBaseURL string
	MarketAPITimeout time.Duration
	MarketAPIRetries int

	// Optional stores. Empty means in-memory only / feature disabled.
	RedisAddr   string
	RedisPass   string
	DatabaseURL string

	// Listing engine. Zero delays fall back to the component defaults.
	ListingCacheTTL time.Duration
	CatalogCacheTTL time.Duration
	ListingPerPage  int
	QueryDebounce   time.Duration
	URLDebounce     time.Duration
	SuggestDebounce time.Duration
	CacheSweepSpec  string

	// Rate limit for /suggestions per client
	SuggestRateLimit  int64
	SuggestRateWindow time.Duration

	// Auth
	JWT      jwt.Config
	LoginURL string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),

		MarketAPIBaseURL: getEnv("MARKET_API_BASE_URL", "http://localhost:8080/api/v1"),
		MarketAPITimeout: getEnvDuration("MARKET_API_TIMEOUT", 10*time.Second),
		MarketAPIRetries: getEnvInt("MARKET_API_RETRIES", 2),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		ListingCacheTTL: getEnvDuration("LISTING_CACHE_TTL", 2*time.Minute),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 30*time.Minute),
		ListingPerPage:  getEnvInt("LISTING_PER_PAGE", 12),
		QueryDebounce:   getEnvDuration("QUERY_DEBOUNCE", 300*time.Millisecond),
		URLDebounce:     getEnvDuration("URL_DEBOUNCE", 0),
		SuggestDebounce: getEnvDuration("SUGGEST_DEBOUNCE", 300*time.Millisecond),
		CacheSweepSpec:  getEnv("CACHE_SWEEP_SPEC", "@every 5m"),

		SuggestRateLimit:  int64(getEnvInt("SUGGEST_RATE_LIMIT", 60)),
		SuggestRateWindow: getEnvDuration("SUGGEST_RATE_WINDOW", time.Minute),

		JWT: jwt.Config{
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   getEnv("JWT_ISSUER", ""),
			Audience: getEnv("JWT_AUDIENCE", ""),
		},
		LoginURL: getEnv("LOGIN_URL", "/login"),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("250ms", "1m") or whole seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
