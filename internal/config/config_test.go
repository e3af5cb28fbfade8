package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DefaultPageSize != 25 {
		t.Errorf("expected default page size 25, got %d", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 100 {
		t.Errorf("expected max page size 100, got %d", cfg.MaxPageSize)
	}
	if cfg.DraftTTL != 24*time.Hour {
		t.Errorf("expected draft TTL 24h, got %s", cfg.DraftTTL)
	}
	if cfg.OutreachDrySampleSize != 3 {
		t.Errorf("expected dry run sample 3, got %d", cfg.OutreachDrySampleSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LEADS_DEFAULT_PAGE_SIZE", "50")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("OUTREACH_RETRY_BASE_DELAY", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://crm.example.com, https://admin.example.com")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DefaultPageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.DefaultPageSize)
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue enabled")
	}
	if cfg.OutreachRetryBaseDelay != 30*time.Second {
		t.Errorf("expected 30s base delay, got %s", cfg.OutreachRetryBaseDelay)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("expected trimmed origin, got %q", cfg.CORSAllowedOrigins[1])
	}
}

func TestGetEnvAsIntBadValue(t *testing.T) {
	t.Setenv("LEADS_MAX_PAGE_SIZE", "not-a-number")
	cfg := Load()
	if cfg.MaxPageSize != 100 {
		t.Errorf("expected fallback 100, got %d", cfg.MaxPageSize)
	}
}
