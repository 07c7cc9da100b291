// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// minTokenSecretLength is the shortest HMAC secret accepted at startup.
const minTokenSecretLength = 32

// Cookie transport restrictions.
const (
	CookieTransportHTTPS = "https"
	CookieTransportAny   = "any"
)

// Cookie cross-site policies.
const (
	CookieSameSiteStrict = "strict"
	CookieSameSiteLax    = "lax"
	CookieSameSiteNone   = "none"
)

var (
	// ErrTokenSecretTooShort indicates TOKEN_SECRET is shorter than minTokenSecretLength.
	ErrTokenSecretTooShort = errors.New("TOKEN_SECRET must be at least 32 bytes")
	// ErrInvalidCookieTransport indicates an unknown SESSION_COOKIE_TRANSPORT value.
	ErrInvalidCookieTransport = errors.New("SESSION_COOKIE_TRANSPORT must be one of: https, any")
	// ErrInvalidCookieSameSite indicates an unknown SESSION_COOKIE_SAMESITE value.
	ErrInvalidCookieSameSite = errors.New("SESSION_COOKIE_SAMESITE must be one of: strict, lax, none")
	// ErrInsecureCrossSiteCookie indicates SameSite=None was requested without HTTPS-only transport.
	ErrInsecureCrossSiteCookie = errors.New("SESSION_COOKIE_SAMESITE=none requires SESSION_COOKIE_TRANSPORT=https")
	// ErrIncompleteTLS indicates only one of TLS_CERT_FILE and TLS_KEY_FILE is set.
	ErrIncompleteTLS = errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	// ErrInvalidBcryptCost indicates BCRYPT_COST is outside the range bcrypt accepts.
	ErrInvalidBcryptCost = errors.New("BCRYPT_COST must be between 4 and 31")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis), holds the session denylist and rate limit buckets
	RedisURL       string `env:"REDIS_URL,required"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"taskdeck:"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// TLS; both files must be set to serve HTTPS directly
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// Session tokens
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`

	// Session cookie. Flags are explicit; nothing is derived from AppEnv.
	CookieName      string `env:"SESSION_COOKIE_NAME" envDefault:"token"`
	CookieHTTPOnly  bool   `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieTransport string `env:"SESSION_COOKIE_TRANSPORT" envDefault:"https"`
	CookieSameSite  string `env:"SESSION_COOKIE_SAMESITE" envDefault:"none"`
	CookieDomain    string `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	CookiePath      string `env:"SESSION_COOKIE_PATH" envDefault:"/"`

	// Rate limiting for login and register, per client IP
	AuthRateLimitEnabled   bool `env:"AUTH_RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRateLimitPerMinute int  `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	AuthRateLimitBurst     int  `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
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

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < minTokenSecretLength {
		return ErrTokenSecretTooShort
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return ErrIncompleteTLS
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return ErrInvalidBcryptCost
	}

	c.CookieTransport = strings.ToLower(strings.TrimSpace(c.CookieTransport))
	switch c.CookieTransport {
	case CookieTransportHTTPS, CookieTransportAny:
	default:
		return ErrInvalidCookieTransport
	}

	c.CookieSameSite = strings.ToLower(strings.TrimSpace(c.CookieSameSite))
	switch c.CookieSameSite {
	case CookieSameSiteStrict, CookieSameSiteLax, CookieSameSiteNone:
	default:
		return ErrInvalidCookieSameSite
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if c.CookieSameSite == CookieSameSiteNone && c.CookieTransport != CookieTransportHTTPS {
		return ErrInsecureCrossSiteCookie
	}

	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or values are inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
