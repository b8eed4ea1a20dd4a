package config

import (
	"strconv"
	"strings"
)

// WorkersMode specifies how worker count is determined.
type WorkersMode int

const (
	// WorkersAuto determines worker count from available CPUs.
	WorkersAuto WorkersMode = iota
	// WorkersFixed uses a specific worker count.
	WorkersFixed
)

// WorkerSetting represents the workers configuration.
type WorkerSetting struct {
	Mode  WorkersMode
	Value int
}

// String returns the string representation of the worker setting.
func (w WorkerSetting) String() string {
	if w.Mode == WorkersAuto {
		return "auto"
	}
	return strconv.Itoa(w.Value)
}

// parseWorkers converts the workers string to WorkerSetting.
func parseWorkers(raw string) WorkerSetting {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "auto" {
		return WorkerSetting{Mode: WorkersAuto}
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return WorkerSetting{Mode: WorkersFixed, Value: n}
	}
	return WorkerSetting{Mode: WorkersAuto}
}

// ServerConfig contains DNS server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Workers        WorkerSetting `yaml:"-"`
	WorkersRaw     string        `yaml:"workers"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	Sockets        int           `yaml:"sockets"` // SO_REUSEPORT listeners; <=1 means a single socket
}

// ZoneConfig describes the single name this responder answers for.
type ZoneConfig struct {
	Name string `yaml:"name"` // fully qualified zone name
	TTL  uint32 `yaml:"ttl"`  // answer TTL in seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "text" or "json"
	IncludePID bool   `yaml:"include_pid"`
}

// QueryLogConfig controls the SQLite query log.
type QueryLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// APIConfig controls the management REST API.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// RateLimitConfig controls pre-parse admission limits.
type RateLimitConfig struct {
	CleanupSeconds   float64 `yaml:"cleanup_seconds"`
	MaxIPEntries     int     `yaml:"max_ip_entries"`
	MaxPrefixEntries int     `yaml:"max_prefix_entries"`
	GlobalQPS        float64 `yaml:"global_qps"`
	GlobalBurst      int     `yaml:"global_burst"`
	PrefixQPS        float64 `yaml:"prefix_qps"`
	PrefixBurst      int     `yaml:"prefix_burst"`
	IPQPS            float64 `yaml:"ip_qps"`
	IPBurst          int     `yaml:"ip_burst"`
}

// Config is the root configuration for checkipdns.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Zone      ZoneConfig      `yaml:"zone"`
	Logging   LoggingConfig   `yaml:"logging"`
	QueryLog  QueryLogConfig  `yaml:"query_log"`
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}
