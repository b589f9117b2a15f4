package config

import (
	"strings"
	"testing"
	"time"

	"github.com/example/photo-check/internal/photo"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envMap(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.MaxUploadBytes != photo.DefaultMaxBytes {
		t.Fatalf("expected default max upload, got %d", cfg.MaxUploadBytes)
	}
	if cfg.PassThreshold != 0.6 {
		t.Fatalf("expected default threshold 0.6, got %v", cfg.PassThreshold)
	}
	if cfg.MaxPixels != photo.DefaultMaxPixels {
		t.Fatalf("expected default max pixels, got %d", cfg.MaxPixels)
	}
	if cfg.ValidationTimeout != photo.DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.ValidationTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"HTTP_ADDR":                ":9090",
		"PHOTO_MAX_UPLOAD_BYTES":   "1024",
		"PHOTO_MAX_PIXELS":         "2000000",
		"PHOTO_VALIDATION_TIMEOUT": "250ms",
		"PHOTO_PASS_THRESHOLD":     "0.75",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.MaxUploadBytes != 1024 || cfg.ValidationTimeout != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	pc := cfg.PhotoConfig()
	if pc.Threshold == nil || *pc.Threshold != 0.75 {
		t.Fatalf("threshold not carried into photo config: %+v", pc)
	}
	if pc.MaxBytes != 1024 || pc.MaxPixels != 2000000 {
		t.Fatalf("limits not carried into photo config: %+v", pc)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PHOTO_MAX_UPLOAD_BYTES":   "-5",
		"PHOTO_MAX_PIXELS":         "lots",
		"PHOTO_VALIDATION_TIMEOUT": "soon",
		"PHOTO_PASS_THRESHOLD":     "1.5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := load(envMap(map[string]string{key: value}))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to name %s, got %v", key, err)
			}
		})
	}
}
