package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	LogLevel    string
	MaxUploadMB float64

	// Webhook
	WebhookURL           string
	WebhookSigningSecret string
	WebhookTokenTTL      time.Duration
	WebhookRatePerSec    float64
	WebhookRateBurst     int

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Payload sizing
	MaxPayloadMB        float64
	EncodePayloadFields bool

	// Images
	ImageMaxDimension   int
	ImageQuality        float64
	ImageBudgetFraction float64

	// Idempotency
	IdempotencyTTL time.Duration

	// Connectivity
	ConnectivityCheck    bool
	ConnectivityTimeout  time.Duration
	ConnectivityCacheTTL time.Duration

	// Chart of accounts (YAML); empty uses the built-in chart
	AccountsFile string

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MaxUploadMB: getEnvFloat("MAX_UPLOAD_MB", 60),

		WebhookURL:           getEnv("WEBHOOK_URL", ""),
		WebhookSigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),
		WebhookTokenTTL:      getEnvDuration("WEBHOOK_TOKEN_TTL", 5*time.Minute),
		WebhookRatePerSec:    getEnvFloat("WEBHOOK_RATE_PER_SEC", 2),
		WebhookRateBurst:     getEnvInt("WEBHOOK_RATE_BURST", 1),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 60*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 500*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		MaxPayloadMB:        getEnvFloat("MAX_PAYLOAD_MB", 4.5),
		EncodePayloadFields: getEnvBool("ENCODE_PAYLOAD_FIELDS", true),

		ImageMaxDimension:   getEnvInt("IMAGE_MAX_DIMENSION", 1200),
		ImageQuality:        getEnvFloat("IMAGE_QUALITY", 0.7),
		ImageBudgetFraction: getEnvFloat("IMAGE_BUDGET_FRACTION", 0.7),

		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 30*time.Minute),

		ConnectivityCheck:    getEnvBool("CONNECTIVITY_CHECK", true),
		ConnectivityTimeout:  getEnvDuration("CONNECTIVITY_TIMEOUT", 3*time.Second),
		ConnectivityCacheTTL: getEnvDuration("CONNECTIVITY_CACHE_TTL", 30*time.Second),

		AccountsFile: getEnv("ACCOUNTS_FILE", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on missing or out-of-range values.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return &domain.ErrConfig{Key: "WEBHOOK_URL", Message: "is required"}
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ErrConfig{Key: "WEBHOOK_URL", Message: "must be an absolute http(s) URL"}
	}

	switch {
	case c.Port <= 0 || c.Port > 65535:
		return &domain.ErrConfig{Key: "PORT", Message: "must be between 1 and 65535"}
	case c.MaxPayloadMB <= 0:
		return &domain.ErrConfig{Key: "MAX_PAYLOAD_MB", Message: "must be positive"}
	case c.MaxUploadMB <= 0:
		return &domain.ErrConfig{Key: "MAX_UPLOAD_MB", Message: "must be positive"}
	case c.ImageMaxDimension < 16:
		return &domain.ErrConfig{Key: "IMAGE_MAX_DIMENSION", Message: "must be at least 16"}
	case c.ImageQuality <= 0 || c.ImageQuality > 1:
		return &domain.ErrConfig{Key: "IMAGE_QUALITY", Message: "must be in (0, 1]"}
	case c.ImageBudgetFraction <= 0 || c.ImageBudgetFraction > 1:
		return &domain.ErrConfig{Key: "IMAGE_BUDGET_FRACTION", Message: "must be in (0, 1]"}
	case c.MaxRetries < 0:
		return &domain.ErrConfig{Key: "MAX_RETRIES", Message: "must not be negative"}
	case c.MaxRetries > 0 && c.InitialBackoff <= 0:
		return &domain.ErrConfig{Key: "INITIAL_BACKOFF", Message: "must be positive when retries are enabled"}
	case c.MaxConcurrency <= 0:
		return &domain.ErrConfig{Key: "MAX_CONCURRENCY", Message: "must be positive"}
	case c.HTTPTimeout <= 0:
		return &domain.ErrConfig{Key: "HTTP_TIMEOUT", Message: "must be positive"}
	case c.WebhookRatePerSec < 0:
		return &domain.ErrConfig{Key: "WEBHOOK_RATE_PER_SEC", Message: "must not be negative"}
	case c.WebhookRateBurst <= 0:
		return &domain.ErrConfig{Key: "WEBHOOK_RATE_BURST", Message: "must be positive"}
	case c.WebhookSigningSecret != "" && c.WebhookTokenTTL <= 0:
		return &domain.ErrConfig{Key: "WEBHOOK_TOKEN_TTL", Message: "must be positive when signing is enabled"}
	case c.IdempotencyTTL <= 0:
		return &domain.ErrConfig{Key: "IDEMPOTENCY_TTL", Message: "must be positive"}
	}
	return nil
}

// MaxUploadBytes is the inbound request body cap.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB * 1024 * 1024)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
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
