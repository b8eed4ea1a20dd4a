// Package config provides configuration loading and validation for checkipdns.
//
// Configuration comes from an optional YAML file plus command-line overrides
// applied by the caller. Load with an empty path yields the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       1053,
			WorkersRaw: "auto",
		},
		Zone: ZoneConfig{
			Name: "my.ip4.live.",
			TTL:  1,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		QueryLog: QueryLogConfig{
			Path: "checkipdns-queries.db",
		},
		API: APIConfig{
			Host: "0.0.0.0",
		},
		RateLimit: RateLimitConfig{
			CleanupSeconds:   60,
			MaxIPEntries:     65536,
			MaxPrefixEntries: 16384,
		},
	}
}

// Load reads the configuration from path, overlaying the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveConfigPath picks the config path from the flag value or the
// CHECKIPDNS_CONFIG environment variable, in that order.
func ResolveConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("CHECKIPDNS_CONFIG"))
}

// Validate validates and normalizes the configuration.
func (cfg *Config) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	if cfg.Zone.Name == "" {
		cfg.Zone.Name = "my.ip4.live."
	}
	if !strings.HasSuffix(cfg.Zone.Name, ".") {
		cfg.Zone.Name += "."
	}
	if cfg.Zone.TTL == 0 {
		cfg.Zone.TTL = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.QueryLog.Enabled && cfg.QueryLog.Path == "" {
		return errors.New("query_log.path must be set when query_log.enabled")
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	cfg.Server.Workers = parseWorkers(cfg.Server.WorkersRaw)
	return nil
}
