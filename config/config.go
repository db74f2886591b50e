package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"linkhub.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Database  DatabaseConfig  `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
	RateLimit RateLimitConfig `split_words:"true"`
	Lockout   LockoutConfig   `split_words:"true"`
	Breaker   BreakerConfig   `split_words:"true"`
	AI        AIConfig        `split_words:"true"`
	Log       LogConfig       `split_words:"true"`
	Metrics   MetricsConfig   `split_words:"true"`
	Shutdown  ShutdownConfig  `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"linkhub"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted database connection string
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// CacheConfig contains settings for the profile cache
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	MaxSize       int           `envconfig:"CACHE_MAX_SIZE" default:"1000"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`

	RedisAddr     string `envconfig:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"CACHE_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"CACHE_REDIS_DB" default:"0"`
}

// RateLimitConfig contains per-policy rate limiting thresholds
type RateLimitConfig struct {
	LoginMax     int           `envconfig:"RATE_LIMIT_LOGIN_MAX" default:"10"`
	LoginWindow  time.Duration `envconfig:"RATE_LIMIT_LOGIN_WINDOW" default:"15m"`
	SignupMax    int           `envconfig:"RATE_LIMIT_SIGNUP_MAX" default:"5"`
	SignupWindow time.Duration `envconfig:"RATE_LIMIT_SIGNUP_WINDOW" default:"1h"`
	ClickMax     int           `envconfig:"RATE_LIMIT_CLICK_MAX" default:"120"`
	ClickWindow  time.Duration `envconfig:"RATE_LIMIT_CLICK_WINDOW" default:"1m"`
	APIMax       int           `envconfig:"RATE_LIMIT_API_MAX" default:"60"`
	APIWindow    time.Duration `envconfig:"RATE_LIMIT_API_WINDOW" default:"1m"`

	SweepInterval time.Duration `envconfig:"RATE_LIMIT_SWEEP_INTERVAL" default:"1m"`
}

// LockoutConfig contains account lockout thresholds
type LockoutConfig struct {
	MaxAttempts       int           `envconfig:"LOCKOUT_MAX_ATTEMPTS" default:"5"`
	BaseDuration      time.Duration `envconfig:"LOCKOUT_BASE_DURATION" default:"30m"`
	IncrementDuration time.Duration `envconfig:"LOCKOUT_INCREMENT_DURATION" default:"15m"`
}

// BreakerConfig contains circuit breaker thresholds and timeouts
type BreakerConfig struct {
	FailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	ResetTimeout     time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"30s"`
	SuccessThreshold int           `envconfig:"BREAKER_SUCCESS_THRESHOLD" default:"2"`
	RequestTimeout   time.Duration `envconfig:"BREAKER_REQUEST_TIMEOUT" default:"10s"`
}

// AIConfig contains settings for the external AI suggestion service
type AIConfig struct {
	APIKey  string `envconfig:"AI_API_KEY" default:""`
	BaseURL string `envconfig:"AI_API_BASE_URL" default:"https://api.openai.com/v1"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// MetricsConfig contains metrics exposure settings
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// ShutdownConfig contains graceful shutdown timing
type ShutdownConfig struct {
	HandlerTimeout time.Duration `envconfig:"SHUTDOWN_HANDLER_TIMEOUT" default:"10s"`
	DrainTimeout   time.Duration `envconfig:"SHUTDOWN_DRAIN_TIMEOUT" default:"15s"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Lockout.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// ValidateSSLMode validates the SSL mode configuration
func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	if err := d.ValidateSSLMode(); err != nil {
		return err
	}
	return nil
}

// Validate checks cache configuration
func (c *CacheConfig) Validate() error {
	if c.Type != "memory" && c.Type != "redis" {
		return errors.NewConfigurationError("CACHE_TYPE must be memory or redis", nil)
	}
	if c.TTL <= 0 {
		return errors.NewConfigurationError("CACHE_TTL must be positive", nil)
	}
	if c.MaxSize < 1 {
		return errors.NewConfigurationError("CACHE_MAX_SIZE must be at least 1", nil)
	}
	if c.Type == "redis" && c.RedisAddr == "" {
		return errors.NewConfigurationError("CACHE_REDIS_ADDR cannot be empty when CACHE_TYPE is redis", nil)
	}
	return nil
}

// Validate checks rate limit configuration
func (r *RateLimitConfig) Validate() error {
	policies := map[string]struct {
		max    int
		window time.Duration
	}{
		"LOGIN":  {r.LoginMax, r.LoginWindow},
		"SIGNUP": {r.SignupMax, r.SignupWindow},
		"CLICK":  {r.ClickMax, r.ClickWindow},
		"API":    {r.APIMax, r.APIWindow},
	}
	for name, p := range policies {
		if p.max < 1 {
			return errors.NewConfigurationError(
				fmt.Sprintf("RATE_LIMIT_%s_MAX must be at least 1", name), nil)
		}
		if p.window <= 0 {
			return errors.NewConfigurationError(
				fmt.Sprintf("RATE_LIMIT_%s_WINDOW must be positive", name), nil)
		}
	}
	return nil
}

// Validate checks lockout configuration
func (l *LockoutConfig) Validate() error {
	if l.MaxAttempts < 1 {
		return errors.NewConfigurationError("LOCKOUT_MAX_ATTEMPTS must be at least 1", nil)
	}
	if l.BaseDuration <= 0 {
		return errors.NewConfigurationError("LOCKOUT_BASE_DURATION must be positive", nil)
	}
	if l.IncrementDuration < 0 {
		return errors.NewConfigurationError("LOCKOUT_INCREMENT_DURATION cannot be negative", nil)
	}
	return nil
}

// Validate checks circuit breaker configuration
func (b *BreakerConfig) Validate() error {
	if b.FailureThreshold < 1 {
		return errors.NewConfigurationError("BREAKER_FAILURE_THRESHOLD must be at least 1", nil)
	}
	if b.SuccessThreshold < 1 {
		return errors.NewConfigurationError("BREAKER_SUCCESS_THRESHOLD must be at least 1", nil)
	}
	if b.ResetTimeout <= 0 {
		return errors.NewConfigurationError("BREAKER_RESET_TIMEOUT must be positive", nil)
	}
	if b.RequestTimeout <= 0 {
		return errors.NewConfigurationError("BREAKER_REQUEST_TIMEOUT must be positive", nil)
	}
	return nil
}

// Validate checks logging configuration
func (l *LogConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return errors.NewConfigurationError("LOG_LEVEL must be one of: debug, info, warn, error", nil)
}

// Validate checks shutdown configuration
func (s *ShutdownConfig) Validate() error {
	if s.HandlerTimeout <= 0 {
		return errors.NewConfigurationError("SHUTDOWN_HANDLER_TIMEOUT must be positive", nil)
	}
	if s.DrainTimeout <= 0 {
		return errors.NewConfigurationError("SHUTDOWN_DRAIN_TIMEOUT must be positive", nil)
	}
	return nil
}
