package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/citewatch/citewatch/internal/model"
)

// Config holds the configuration for the citewatch service.
// Environment variables are parsed from the CITEWATCH_ prefix, e.g.
// CITEWATCH_HTTP_PORT, CITEWATCH_SERP_API_KEY.
type Config struct {
	// HTTP Configuration
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	APIToken string `envconfig:"API_TOKEN" default:""`

	// Provider Configuration
	SerpAPIKey  string        `envconfig:"SERP_API_KEY" default:""`
	SerpBaseURL string        `envconfig:"SERP_BASE_URL" default:"https://serpapi.com"`
	SerpTimeout time.Duration `envconfig:"SERP_TIMEOUT" default:"30s"`
	SerpLocale  string        `envconfig:"SERP_LOCALE" default:"en"`

	// Persistence
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Notifications
	RedisURL        string `envconfig:"REDIS_URL" default:""`
	EmailWebhookURL string `envconfig:"EMAIL_WEBHOOK_URL" default:""`

	// Check pipeline tunables
	CacheCapacity    int           `envconfig:"CACHE_CAPACITY" default:"512"`
	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	RateLimit        int           `envconfig:"RATE_LIMIT" default:"60"`
	RateWindow       time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"10s"`
	EngineCallDelay  time.Duration `envconfig:"ENGINE_CALL_DELAY" default:"2s"`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	CheckTimeout     time.Duration `envconfig:"CHECK_TIMEOUT" default:"2m"`
}

// New creates a Config by parsing CITEWATCH_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("CITEWATCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &cfg, nil
}

// RequireProvider fails fast when the SERP credential is missing. The control
// API refuses to start without it; tests inject fake providers instead.
func (c *Config) RequireProvider() error {
	if c.SerpAPIKey == "" {
		return fmt.Errorf("CITEWATCH_SERP_API_KEY is required: %w", model.ErrConfiguration)
	}
	return nil
}
