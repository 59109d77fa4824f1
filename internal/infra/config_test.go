package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRequiresProviderToken(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REPLICATE_API_TOKEN", "  ")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when REPLICATE_API_TOKEN is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPLICATE_BASE_URL", "")
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("WEBHOOK_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ReplicateBaseURL != "https://api.replicate.com/v1" {
		t.Fatalf("ReplicateBaseURL mismatch: got %q", cfg.ReplicateBaseURL)
	}
	if cfg.ImageVersion != DefaultImageVersion {
		t.Fatalf("ImageVersion mismatch: got %q", cfg.ImageVersion)
	}
	if cfg.ProviderTimeout != 300*time.Second {
		t.Fatalf("ProviderTimeout mismatch: got %s", cfg.ProviderTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.WebhookURL() != "" {
		t.Fatalf("expected webhooks disabled, got %q", cfg.WebhookURL())
	}
}

func TestLoadConfigWebhookURLTrimsSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WEBHOOK_BASE_URL", "https://api.example.com/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "https://api.example.com/v1/predictions/webhook"
	if cfg.WebhookURL() != expected {
		t.Fatalf("WebhookURL mismatch: got %q want %q", cfg.WebhookURL(), expected)
	}
}

func TestLoadConfigParsesOriginList(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,http://localhost:5173 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "http://localhost:5173"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadConfigClampsPollerConcurrency(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLLER_CONCURRENCY", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollerConcurrency != 1 {
		t.Fatalf("PollerConcurrency = %d, want 1", cfg.PollerConcurrency)
	}
}
