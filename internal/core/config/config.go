// Package config provides configuration management for shelfkeeper services.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Engine   EngineConfig
}

// ServerConfig holds configuration for the gRPC shelf service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the catalog/shelf database location.
// URL schemes: sqlite://path/to.db, postgres://user@host/db.
type DatabaseConfig struct {
	URL string
}

// LogConfig selects zap's level and encoder ("json" or "text").
type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig holds rule engine limits.
type EngineConfig struct {
	MaxDepth int
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "sqlite://./data/shelfkeeper.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			MaxDepth: 16,
		},
	}
}

// urlHasPassword reports whether a database URL embeds a password.
// Unparsable URLs are left to db.Open to reject.
func urlHasPassword(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}
