package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Model identifiers accepted by the provider's "version" field.
const (
	DefaultImageVersion         = "black-forest-labs/flux-1.1-pro"
	DefaultVideoStandardVersion = "kwaivgi/kling-v1.6-standard"
	DefaultVideoProVersion      = "kwaivgi/kling-v1.6-pro"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	ReplicateAPIToken    string
	ReplicateBaseURL     string
	ImageVersion         string
	VideoStandardVersion string
	VideoProVersion      string
	ImageAspectRatio     string
	ImageOutputFormat    string
	ImageSafetyTolerance int
	ProviderTimeout      time.Duration
	ProviderPollInterval time.Duration
	WebhookBaseURL       string
	WebhookSecret        string

	PollerInterval    time.Duration
	PollerBatchSize   int
	PollerConcurrency int

	SchedulerInterval  time.Duration
	SchedulerBatchSize int

	CORSAllowedOrigins []string
	RateLimitPerMin    int
	GeoIPDBPath        string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		ReplicateAPIToken:    strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),
		ReplicateBaseURL:     strings.TrimRight(getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"), "/"),
		ImageVersion:         getEnv("REPLICATE_IMAGE_VERSION", DefaultImageVersion),
		VideoStandardVersion: getEnv("REPLICATE_VIDEO_STANDARD_VERSION", DefaultVideoStandardVersion),
		VideoProVersion:      getEnv("REPLICATE_VIDEO_PRO_VERSION", DefaultVideoProVersion),
		ImageAspectRatio:     getEnv("IMAGE_ASPECT_RATIO", "1:1"),
		ImageOutputFormat:    getEnv("IMAGE_OUTPUT_FORMAT", "png"),
		ImageSafetyTolerance: getEnvInt("IMAGE_SAFETY_TOLERANCE", 2),
		ProviderTimeout:      time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 300)),
		ProviderPollInterval: time.Millisecond * time.Duration(getEnvInt("PROVIDER_POLL_INTERVAL_MS", 1000)),
		WebhookBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")), "/"),
		WebhookSecret:        strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),

		PollerInterval:    time.Second * time.Duration(getEnvInt("POLLER_INTERVAL_SECONDS", 30)),
		PollerBatchSize:   getEnvInt("POLLER_BATCH_SIZE", 50),
		PollerConcurrency: getEnvInt("POLLER_CONCURRENCY", 4),

		SchedulerInterval:  time.Second * time.Duration(getEnvInt("SCHEDULER_INTERVAL_SECONDS", 60)),
		SchedulerBatchSize: getEnvInt("SCHEDULER_BATCH_SIZE", 10),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		GeoIPDBPath:        strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ReplicateAPIToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	if cfg.PollerConcurrency <= 0 {
		cfg.PollerConcurrency = 1
	}

	return cfg, nil
}

// WebhookURL returns the provider callback endpoint, or "" when callbacks are disabled.
func (c *Config) WebhookURL() string {
	if c == nil || c.WebhookBaseURL == "" {
		return ""
	}
	return c.WebhookBaseURL + "/v1/predictions/webhook"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
