package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SlackWebhookURL     string        `env:"SLACK_WEBHOOK_URL"`
	GitHubWebhookSecret string        `env:"GITHUB_WEBHOOK_SECRET"`
	NotifyTimeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	// StorageQuotaBytes enables the directory estimator when positive.
	StorageQuotaBytes int64  `env:"STORAGE_QUOTA_BYTES" envDefault:"0"`
	StorageDir        string `env:"STORAGE_DIR" envDefault:"."`

	// DocumentBudgetBytes caps the estimated image bytes of one model.
	DocumentBudgetBytes int64         `env:"DOCUMENT_BUDGET_BYTES" envDefault:"1048576"`
	MaxUploadBytes      int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	CompressTimeout     time.Duration `env:"COMPRESS_TIMEOUT" envDefault:"30s"`

	// MaxDecodePixels rejects images whose header declares a larger area.
	MaxDecodePixels int64 `env:"MAX_DECODE_PIXELS" envDefault:"50000000"`
}

// Load parses Config from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DocumentBudgetBytes <= 0 {
		return fmt.Errorf("DOCUMENT_BUDGET_BYTES must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.CompressTimeout <= 0 {
		return fmt.Errorf("COMPRESS_TIMEOUT must be positive")
	}
	if c.MaxDecodePixels <= 0 {
		return fmt.Errorf("MAX_DECODE_PIXELS must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
