package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for all configuration environment variables,
// e.g. PHARMACHAT_HTTP_PORT.
const EnvPrefix = "pharmachat"

// Config holds all system settings. Defaults come from DefaultConfig;
// environment variables override them in Load.
type Config struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	AI        AIConfig
}

type HTTPConfig struct {
	Host           string        `split_words:"true"`
	Port           int           `split_words:"true"`
	ReadTimeout    time.Duration `split_words:"true"`
	WriteTimeout   time.Duration `split_words:"true"`
	AllowedOrigins []string      `split_words:"true"`
}

type WebSocketConfig struct {
	// HeartbeatInterval is the probe period T: a silent connection is
	// terminated after more than T and at most 2T.
	HeartbeatInterval time.Duration `split_words:"true"`
	WriteTimeout      time.Duration `split_words:"true"`
	BufferSize        int           `split_words:"true"`
}

type DatabaseConfig struct {
	Path           string        `split_words:"true"`
	MaxConnections int           `split_words:"true"`
	ConnLifetime   time.Duration `split_words:"true"`
}

type AuthConfig struct {
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	JWTRefreshSecret string        `envconfig:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `envconfig:"ACCESS_TOKEN_TTL"`

	// Optional pharmacist account provisioned at startup. Pharmacist
	// accounts are not self-service.
	SeedPharmacistUsername string `envconfig:"SEED_PHARMACIST_USERNAME"`
	SeedPharmacistPassword string `envconfig:"SEED_PHARMACIST_PASSWORD"`
	SeedPharmacistName     string `envconfig:"SEED_PHARMACIST_NAME"`
}

type AIConfig struct {
	BackendURL string        `envconfig:"BACKEND_URL"`
	Timeout    time.Duration `split_words:"true"`
}

// DefaultConfig returns production-ready defaults: the original service
// port, a 30s heartbeat and local sqlite storage.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         3001,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		WebSocket: WebSocketConfig{
			HeartbeatInterval: 30 * time.Second,
			WriteTimeout:      5 * time.Second,
			BufferSize:        100,
		},
		Database: DatabaseConfig{
			Path:           "./pharmachat.db",
			MaxConnections: 10,
			ConnLifetime:   30 * time.Minute,
		},
		Auth: AuthConfig{
			AccessTokenTTL: time.Hour,
		},
		AI: AIConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults and environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}

	if c.WebSocket.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT refresh secret is required")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}

	if c.AI.BackendURL == "" {
		return fmt.Errorf("AI backend URL is required")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	return nil
}
