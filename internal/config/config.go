// Package config provides configuration loading for gitzend.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Secrets (database password, JWT signing key, OAuth client
// secret) are expected to arrive via environment variables in production;
// the file loader enforces owner-only permissions for setups that keep
// them on disk anyway.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gitzenhq/gitzen/internal/logging"
)

// Config holds the complete gitzend configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	GitHub   GitHubConfig   `koanf:"github"`
	Logging  logging.Config `koanf:"logging"`
	Debug    bool           `koanf:"debug"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       string        `koanf:"body_limit"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration. DSN carries
// credentials and must never be logged verbatim.
type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// AuthConfig holds token issuance configuration.
type AuthConfig struct {
	// JWTSecret signs access tokens (HS256). Required, min 32 bytes.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the access token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// BcryptCost for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`
}

// GitHubConfig holds the OAuth application credentials.
type GitHubConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURL  string        `koanf:"redirect_url"`
	StateTTL     time.Duration `koanf:"state_ttl"`
}

// Enabled reports whether the OAuth pathway is configured at all.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown_timeout must be positive")
	}

	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if _, err := url.Parse(c.Database.DSN); err != nil {
		// Never echo the DSN itself, it carries the password.
		return errors.New("database dsn is not a valid URL")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max_conns must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min_conns must be 0..max_conns, got %d", c.Database.MinConns)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth jwt_secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token_ttl must be positive")
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth bcrypt_cost must be 10-31, got %d", c.Auth.BcryptCost)
	}

	if c.GitHub.Enabled() {
		if c.GitHub.RedirectURL == "" {
			return errors.New("github redirect_url is required when OAuth is configured")
		}
		if _, err := url.ParseRequestURI(c.GitHub.RedirectURL); err != nil {
			return fmt.Errorf("github redirect_url is invalid: %w", err)
		}
		if c.GitHub.StateTTL <= 0 {
			return errors.New("github state_ttl must be positive")
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "1M"
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MaxConnLifetime == 0 {
		cfg.Database.MaxConnLifetime = time.Hour
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 5 * time.Second
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}

	if cfg.GitHub.StateTTL == 0 {
		cfg.GitHub.StateTTL = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging = *logging.NewDefaultConfig()
	}
}
