package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/example/photo-check/internal/photo"
)

// Config captures everything the service reads from its environment.
type Config struct {
	Addr        string
	DatabaseDSN string
	RedisAddr   string
	JWTSecret   string
	JWTAudience string
	LogLevel    string

	MaxUploadBytes    int
	MaxPixels         int
	ValidationTimeout time.Duration
	PassThreshold     float64
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:        valueOr(getenv, "HTTP_ADDR", ":8080"),
		DatabaseDSN: valueOr(getenv, "DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=photocheck port=5432 sslmode=disable"),
		RedisAddr:   valueOr(getenv, "REDIS_ADDR", "redis:6379"),
		JWTSecret:   valueOr(getenv, "JWT_SECRET", "dev-secret"),
		JWTAudience: getenv("JWT_AUDIENCE"),
		LogLevel:    valueOr(getenv, "LOG_LEVEL", "info"),

		MaxUploadBytes:    photo.DefaultMaxBytes,
		MaxPixels:         photo.DefaultMaxPixels,
		ValidationTimeout: photo.DefaultTimeout,
		PassThreshold:     photo.DefaultThreshold,
	}

	if raw := getenv("PHOTO_MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("PHOTO_MAX_UPLOAD_BYTES must be a positive integer, got %q", raw)
		}
		cfg.MaxUploadBytes = n
	}
	if raw := getenv("PHOTO_MAX_PIXELS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("PHOTO_MAX_PIXELS must be a positive integer, got %q", raw)
		}
		cfg.MaxPixels = n
	}
	if raw := getenv("PHOTO_VALIDATION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("PHOTO_VALIDATION_TIMEOUT must be a positive duration, got %q", raw)
		}
		cfg.ValidationTimeout = d
	}
	if raw := getenv("PHOTO_PASS_THRESHOLD"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			return Config{}, fmt.Errorf("PHOTO_PASS_THRESHOLD must be within [0,1], got %q", raw)
		}
		cfg.PassThreshold = f
	}
	return cfg, nil
}

// PhotoConfig converts the validation settings into a photo.Config.
func (c Config) PhotoConfig() photo.Config {
	threshold := c.PassThreshold
	return photo.Config{
		MaxBytes:  c.MaxUploadBytes,
		MaxPixels: c.MaxPixels,
		Timeout:   c.ValidationTimeout,
		Threshold: &threshold,
	}
}

func valueOr(getenv func(string) string, key, fallback string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return fallback
}
