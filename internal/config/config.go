package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the prompt worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"prompt-1"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"prompt.work"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"prompt-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"prompt.rendered"`
	ResultMaxLen  int64         `env:"RESULT_MAX_LEN" envDefault:"0"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`

	// LLM configuration
	LLMProvider  string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"claude-sonnet-4-20250514"`
	LLMBaseURL   string        `env:"LLM_BASE_URL"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxTokens int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`

	// CEL configuration
	CELEnabled bool `env:"CEL_ENABLED" envDefault:"true"`

	// before: step and files: configuration. Both come from stream payloads,
	// so they are off unless explicitly enabled.
	BeforeEnabled bool          `env:"BEFORE_ENABLED" envDefault:"false"`
	FilesEnabled  bool          `env:"FILES_ENABLED" envDefault:"false"`
	Shell         string        `env:"SHELL" envDefault:"/bin/sh"`
	BeforeTimeout time.Duration `env:"BEFORE_TIMEOUT" envDefault:"30s"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return LoadWith(env.Options{})
}

// LoadWith loads configuration using explicit env options, e.g. a fixed
// Environment map in tests
func LoadWith(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	// A base URL routes everything to an OpenAI-compatible endpoint, so the
	// provider only matters without one
	if c.LLMProvider == "" && c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_PROVIDER or LLM_BASE_URL is required")
	}

	// LLM_API_KEY is optional - only required when a node asks for a completion

	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}

	if c.ResultMaxLen < 0 {
		return fmt.Errorf("RESULT_MAX_LEN must be non-negative")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be non-negative")
	}

	if c.BeforeTimeout <= 0 {
		return fmt.Errorf("BEFORE_TIMEOUT must be positive")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, "+
			"LLMProvider=%s, LLMModel=%s, LLMBaseURL=%s, CELEnabled=%v, BeforeEnabled=%v, FilesEnabled=%v, Shell=%s, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.LLMProvider,
		c.LLMModel,
		c.LLMBaseURL,
		c.CELEnabled,
		c.BeforeEnabled,
		c.FilesEnabled,
		c.Shell,
		c.HealthPort,
		c.LogLevel,
	)
}
