package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "access-secret"
	cfg.Auth.JWTRefreshSecret = "refresh-secret"
	cfg.AI.BackendURL = "http://localhost:8000/chat"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTP.Port != 3001 {
		t.Errorf("Expected default port 3001, got %d", cfg.HTTP.Port)
	}
	if cfg.WebSocket.HeartbeatInterval != 30*time.Second {
		t.Errorf("Expected 30s heartbeat, got %s", cfg.WebSocket.HeartbeatInterval)
	}
	if cfg.Database.Path == "" {
		t.Error("Default database path must be set")
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }, "port"},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }, "port"},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }, "host"},
		{"zero heartbeat", func(c *Config) { c.WebSocket.HeartbeatInterval = 0 }, "heartbeat"},
		{"zero buffer", func(c *Config) { c.WebSocket.BufferSize = 0 }, "buffer"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database path"},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT secret"},
		{"missing refresh secret", func(c *Config) { c.Auth.JWTRefreshSecret = "" }, "JWT refresh secret"},
		{"zero token ttl", func(c *Config) { c.Auth.AccessTokenTTL = 0 }, "TTL"},
		{"missing backend url", func(c *Config) { c.AI.BackendURL = "" }, "AI backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation to fail")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.wantMsg)) {
				t.Errorf("Expected error mentioning %q, got %q", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PHARMACHAT_AUTH_JWT_SECRET", "env-access-secret")
	t.Setenv("PHARMACHAT_AUTH_JWT_REFRESH_SECRET", "env-refresh-secret")
	t.Setenv("PHARMACHAT_AI_BACKEND_URL", "http://localhost:9000/chat")
	t.Setenv("PHARMACHAT_HTTP_PORT", "8080")
	t.Setenv("PHARMACHAT_WEBSOCKET_HEARTBEAT_INTERVAL", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.JWTSecret != "env-access-secret" {
		t.Errorf("JWT secret not read from environment: %q", cfg.Auth.JWTSecret)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080 from environment, got %d", cfg.HTTP.Port)
	}
	if cfg.WebSocket.HeartbeatInterval != 10*time.Second {
		t.Errorf("Expected 10s heartbeat from environment, got %s", cfg.WebSocket.HeartbeatInterval)
	}
	// Untouched settings keep their defaults.
	if cfg.Database.Path != "./pharmachat.db" {
		t.Errorf("Expected default database path, got %q", cfg.Database.Path)
	}
}

func TestLoadFailsWithoutSecrets(t *testing.T) {
	t.Setenv("PHARMACHAT_AUTH_JWT_SECRET", "")
	t.Setenv("PHARMACHAT_AUTH_JWT_REFRESH_SECRET", "")
	t.Setenv("PHARMACHAT_AI_BACKEND_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load must fail when secrets are missing")
	}
}
