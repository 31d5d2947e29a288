package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig,
// e.g. SHELF_DATABASE_URL for database.url.
const EnvPrefix = "SHELF"

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

// LoadConfigWith loads configuration into a caller-supplied viper instance,
// so the CLI can bind cobra flags before values are resolved.
func LoadConfigWith(v *viper.Viper, configPath string) (*Config, error) {
	return load(v, configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	def := DefaultConfig()

	// Set defaults matching DefaultConfig
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("engine.max_depth", def.Engine.MaxDepth)

	// Bind environment variables with SHELF_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(configPath); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Engine: EngineConfig{
			MaxDepth: v.GetInt("engine.max_depth"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive timeout and depth, and known log settings.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url must be set")
	}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	if cfg.Engine.MaxDepth <= 0 || cfg.Engine.MaxDepth > 64 {
		return fmt.Errorf("engine.max_depth must be between 1 and 64, got %d", cfg.Engine.MaxDepth)
	}
	return nil
}

// validateNoSecretsInConfig rejects database passwords written into config files.
// The file is read on its own so an environment override cannot mask it.
func validateNoSecretsInConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	fv := viper.New()
	fv.SetConfigFile(configPath)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if urlHasPassword(fv.GetString("database.url")) {
		return fmt.Errorf("database passwords not allowed in config files (use %s_DATABASE_URL environment variable)", EnvPrefix)
	}
	return nil
}
