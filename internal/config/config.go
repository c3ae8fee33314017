// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store kinds for the local fallback
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RoteiroAPIURL string
	SyncTimeout   time.Duration

	Store         string
	StorePath     string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	GeocoderURL      string
	GeocoderCacheTTL time.Duration

	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string

	TranscriptLimit int
}

// NewFromEnv reads the configuration, loading a .env file first when one
// exists. Variables already set in the environment win over .env values.
func NewFromEnv(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: loading env file: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Port:          getEnv("API_PORT", "8080"),
		Env:           getEnv("AVI_ENV", "production"),
		LogLevel:      getEnv("AVI_LOG_LEVEL", "info"),
		RoteiroAPIURL: getEnv("ROTEIRO_API_URL", "http://localhost:5000"),
		Store:         strings.ToLower(getEnv("AVI_STORE", StoreFile)),
		StorePath:     getEnv("AVI_STORE_PATH", "./data"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:   getEnv("REDIS_PREFIX", "avi:"),
		GeocoderURL:   getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
	}

	var err error
	if cfg.SyncTimeout, err = getDuration("ROTEIRO_SYNC_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocoderCacheTTL, err = getDuration("GEOCODER_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getFloat("AVI_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = getInt("AVI_RATE_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.TranscriptLimit, err = getInt("AVI_TRANSCRIPT_LIMIT", 200); err != nil {
		return nil, err
	}
	cfg.AllowedOrigins = splitList(getEnv("AVI_ALLOWED_ORIGINS", "*"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("%w: AVI_STORE must be file, memory or redis, got %q", ErrInvalidConfig, c.Store)
	}
	if c.Store == StoreFile && c.StorePath == "" {
		return fmt.Errorf("%w: AVI_STORE_PATH is required for the file store", ErrInvalidConfig)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("%w: ROTEIRO_SYNC_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: AVI_RATE_LIMIT must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsDevelopment reports whether development logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return f, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
