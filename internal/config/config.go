package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`

	// JWTSecret signs session tokens. Required, minimum 32 bytes;
	// validated here so misconfiguration aborts startup instead of
	// surfacing mid-request.
	JWTSecret string `env:"JWT_SECRET,required"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// AllowedOrigins is the CSRF origin allowlist. Empty means any
	// present origin passes (missing origins still fail).
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// CSRFExemptPaths override the default pre-session allowlist.
	CSRFExemptPaths []string `env:"CSRF_EXEMPT_PATHS" envSeparator:","`

	// WhitelistedIPs bypass rate limiting entirely.
	WhitelistedIPs []string `env:"RATELIMIT_WHITELIST" envSeparator:","`

	// Auth rate limit overrides (0 keeps the defaults).
	AuthRateLimit  int64 `env:"RATELIMIT_AUTH_LIMIT"`
	AuthRateWindow int   `env:"RATELIMIT_AUTH_WINDOW_SECONDS"`

	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`
}

const minSecretLen = 32

// Load parses configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.JWTSecret) < minSecretLen {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minSecretLen, len(cfg.JWTSecret))
	}

	return cfg, nil
}

// Production reports whether the service runs in production mode.
// Cookies are marked Secure only in production.
func (c Config) Production() bool {
	return c.Environment == "production"
}
