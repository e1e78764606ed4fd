// Package config loads the server configuration from an optional .env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SessionBackendSQL   = "sql"
	SessionBackendRedis = "redis"

	defaultCategories = "Snowboarding,Soccer,Basketball,Baseball,Rock Climbing,Frisbee"
)

// Config holds all configuration for the server.
type Config struct {
	Port   int    `mapstructure:"PORT"`
	DBPath string `mapstructure:"DB_PATH"`

	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	SecureCookies  bool          `mapstructure:"SECURE_COOKIES"`

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Those headers are set by the client unless a proxy overwrites them, so
	// enable this only behind one; the connect rate limit is keyed on it.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	// Redis backs the session store when SESSION_BACKEND=redis, and the
	// connect rate limiter whenever REDIS_ADDR is set.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	GoogleClientID          string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret      string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleClientSecretsFile string `mapstructure:"GOOGLE_CLIENT_SECRETS_FILE"`
	FacebookAppID           string `mapstructure:"FACEBOOK_APP_ID"`
	FacebookAppSecret       string `mapstructure:"FACEBOOK_APP_SECRET"`

	OAuthTimeout time.Duration `mapstructure:"OAUTH_TIMEOUT"`

	// ConnectRateLimit is the number of connect attempts allowed per client
	// IP per minute.
	ConnectRateLimit int `mapstructure:"CONNECT_RATE_LIMIT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Categories is the comma separated reference list ensured at startup.
	Categories string `mapstructure:"CATALOG_CATEGORIES"`
}

// Load reads .env (when present) into the environment, then resolves every
// key from the environment with the defaults below.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env file: %w", err)
	}
	return load()
}

func load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "data/catalog.db")

	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_BACKEND", SessionBackendSQL)
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("TRUST_PROXY", false)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_CLIENT_SECRETS_FILE", "")
	v.SetDefault("FACEBOOK_APP_ID", "")
	v.SetDefault("FACEBOOK_APP_SECRET", "")

	v.SetDefault("OAUTH_TIMEOUT", "10s")
	v.SetDefault("CONNECT_RATE_LIMIT", 20)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("CATALOG_CATEGORIES", defaultCategories)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be set to at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d is out of range", c.Port)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.OAuthTimeout <= 0 {
		return errors.New("config: OAUTH_TIMEOUT must be positive")
	}
	if c.ConnectRateLimit < 0 {
		return errors.New("config: CONNECT_RATE_LIMIT must not be negative")
	}

	switch c.SessionBackend {
	case SessionBackendSQL:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: SESSION_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	if (c.FacebookAppID == "") != (c.FacebookAppSecret == "") {
		return errors.New("config: FACEBOOK_APP_ID and FACEBOOK_APP_SECRET must be set together")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in has credentials, either
// inline or through a client-secrets file.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientSecretsFile != "" || (c.GoogleClientID != "" && c.GoogleClientSecret != "")
}

func (c *Config) FacebookEnabled() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != ""
}

// CategoryNames splits CATALOG_CATEGORIES, dropping blanks.
func (c *Config) CategoryNames() []string {
	var names []string
	for _, part := range strings.Split(c.Categories, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
