// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Identity & plan provider
	// SessionJWTSecret verifies session tokens issued by the provider.
	// IdentitySecretKey authenticates calls to its management API.
	SessionJWTSecret      string        `env:"SESSION_JWT_SECRET,required"`
	IdentityAPIURL        string        `env:"IDENTITY_API_URL,required"`
	IdentitySecretKey     string        `env:"IDENTITY_SECRET_KEY,required"`
	IdentityWebhookSecret string        `env:"IDENTITY_WEBHOOK_SECRET" envDefault:""`
	IdentityTimeout       time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"5s"`

	// Plan state caching
	PlanCacheTTL time.Duration `env:"PLAN_CACHE_TTL" envDefault:"60s"`

	// Generation provider (OpenAI-compatible chat completions)
	LLMBaseURL string        `env:"LLM_BASE_URL,required"`
	LLMAPIKey  string        `env:"LLM_API_KEY,required"`
	LLMModel   string        `env:"LLM_MODEL" envDefault:"gemini-2.0-flash"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Text-to-image provider
	ImageAPIURL  string        `env:"IMAGE_API_URL,required"`
	ImageAPIKey  string        `env:"IMAGE_API_KEY,required"`
	ImageTimeout time.Duration `env:"IMAGE_TIMEOUT" envDefault:"60s"`

	// Media-management service (asset storage + edit transforms)
	MediaUploadURL   string        `env:"MEDIA_UPLOAD_URL,required"`
	MediaDeliveryURL string        `env:"MEDIA_DELIVERY_URL,required"`
	MediaCloudName   string        `env:"MEDIA_CLOUD_NAME,required"`
	MediaAPIKey      string        `env:"MEDIA_API_KEY,required"`
	MediaAPISecret   string        `env:"MEDIA_API_SECRET,required"`
	MediaTimeout     time.Duration `env:"MEDIA_TIMEOUT" envDefault:"60s"`

	// Quota
	FreeTierLimit int `env:"FREE_TIER_LIMIT" envDefault:"10"`

	// Uploads
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB
	MaxResumeSize int64 `env:"MAX_RESUME_SIZE" envDefault:"5242880"`  // 5MB

	// Rate limiting (per authenticated user)
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	RateLimitBurst     int  `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
