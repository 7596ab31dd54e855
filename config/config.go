package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all engine configuration loaded from the environment
type Config struct {
	Port           string
	Host           string
	DatabaseURL    string
	RedisURL       string
	APIKey         string
	AllowedOrigins string
	RateLimitRPS   float64

	Fetch   FetchConfig
	Stealth StealthConfig
	Batch   BatchConfig
}

// FetchConfig controls the plain HTTP fetch path
type FetchConfig struct {
	Timeout      time.Duration // per-request timeout
	MaxRetries   int           // additional attempts after the first
	CacheTTL     time.Duration // cached HTML lifetime
	PerHostRate  float64       // requests per second per host, 0 disables
	PerHostBurst int
}

// StealthConfig controls the identity pool and headless rendering path.
// Rotation and burn values default to the tracker's long-standing settings
// but are tunable because they were never load-tested as optima.
type StealthConfig struct {
	Enabled           bool
	MinRequestsRotate int           // lower bound of randomized rotation threshold
	MaxRequestsRotate int           // upper bound of randomized rotation threshold
	BurnDuration      time.Duration // how long a burned identity stays out of rotation
	NavigationTimeout time.Duration
	CounterTTL        time.Duration // idle expiry for usage counters and cookies
}

// BatchConfig controls the batch orchestrator
type BatchConfig struct {
	Workers          int           // bounded concurrency for ordinary URLs
	MinJitter        time.Duration // per-request jitter, ordinary path
	MaxJitter        time.Duration
	StealthMinJitter time.Duration // between sequential stealth attempts
	StealthMaxJitter time.Duration
	StaleAfter       time.Duration // items older than this need a refresh
	DropThreshold    float64       // percent drop that triggers notifications
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Host:           getEnv("HOST", "0.0.0.0"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		APIKey:         os.Getenv("API_KEY"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		Fetch: FetchConfig{
			Timeout:      getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
			MaxRetries:   getEnvInt("FETCH_MAX_RETRIES", 2),
			CacheTTL:     getEnvDuration("FETCH_CACHE_TTL", time.Hour),
			PerHostRate:  getEnvFloat("FETCH_PER_HOST_RATE", 1),
			PerHostBurst: getEnvInt("FETCH_PER_HOST_BURST", 1),
		},
		Stealth: StealthConfig{
			Enabled:           getEnvBool("STEALTH_ENABLED", true),
			MinRequestsRotate: getEnvInt("STEALTH_MIN_REQUESTS_ROTATE", 10),
			MaxRequestsRotate: getEnvInt("STEALTH_MAX_REQUESTS_ROTATE", 20),
			BurnDuration:      getEnvDuration("STEALTH_BURN_DURATION", 24*time.Hour),
			NavigationTimeout: getEnvDuration("STEALTH_NAV_TIMEOUT", 30*time.Second),
			CounterTTL:        getEnvDuration("STEALTH_COUNTER_TTL", 24*time.Hour),
		},
		Batch: BatchConfig{
			Workers:          getEnvInt("BATCH_WORKERS", 5),
			MinJitter:        getEnvDuration("BATCH_MIN_JITTER", 100*time.Millisecond),
			MaxJitter:        getEnvDuration("BATCH_MAX_JITTER", time.Second),
			StealthMinJitter: getEnvDuration("BATCH_STEALTH_MIN_JITTER", time.Second),
			StealthMaxJitter: getEnvDuration("BATCH_STEALTH_MAX_JITTER", 3*time.Second),
			StaleAfter:       getEnvDuration("PRICE_STALE_AFTER", 7*24*time.Hour),
			DropThreshold:    getEnvFloat("PRICE_DROP_THRESHOLD", 10),
		},
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
