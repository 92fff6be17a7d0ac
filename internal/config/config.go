// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package config

import (
	"fmt"
	"time"
)

// Config holds all Dashforge configuration.
//
// Loading order (Koanf v2):
//  1. Defaults built into defaultConfig
//  2. Optional YAML file (config.yaml, or the path in CONFIG_PATH)
//  3. Environment variables
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server          ServerConfig          `koanf:"server"`
	CurrentInstance CurrentInstanceConfig `koanf:"current_instance"`
	Transport       TransportConfig       `koanf:"transport"`
	Cache           CacheConfig           `koanf:"cache"`
	Scheduler       SchedulerConfig       `koanf:"scheduler"`
	Datastore       DatastoreConfig       `koanf:"datastore"`
	Security        SecurityConfig        `koanf:"security"`
	Logging         LoggingConfig         `koanf:"logging"`
	Globals         GlobalsConfig         `koanf:"globals"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CurrentInstanceConfig points at the DHIS2 instance hosting the dashboards.
// Current-instance queries, the dataStore backend and the Elasticsearch proxy
// all go through it.
//
// Environment Variables:
//   - DHIS2_URL: base URL, without the /api suffix
//   - DHIS2_USERNAME / DHIS2_PASSWORD: basic auth credentials
//   - DHIS2_TIMEOUT: per-request timeout (default: 30s)
type CurrentInstanceConfig struct {
	URL      string        `koanf:"url"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

// TransportConfig tunes outbound requests. Limits apply per data source.
type TransportConfig struct {
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	// Circuit breaker. The breaker opens after FailureThreshold consecutive
	// failures and half-opens after BreakerTimeout.
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	FailureThreshold   uint32        `koanf:"failure_threshold"`

	// MaxBatchConcurrency bounds the fan-out of one current-instance batch.
	MaxBatchConcurrency int `koanf:"max_batch_concurrency"`

	// MaxErrorBody caps how much of a non-2xx body is kept on the error.
	MaxErrorBody int64 `koanf:"max_error_body"`
}

// CacheConfig controls raw payload reuse.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// SchedulerConfig controls timer-driven refetches.
type SchedulerConfig struct {
	// DefaultInterval applies when a watch request sets no refreshInterval.
	// Zero means "off".
	DefaultInterval time.Duration `koanf:"default_interval"`

	// MinInterval clamps client supplied intervals.
	MinInterval time.Duration `koanf:"min_interval"`

	// FocusDebounce drops focus events arriving within this window of the
	// previous run.
	FocusDebounce time.Duration `koanf:"focus_debounce"`

	// RunTimeout bounds a single scheduled resolution.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// Datastore backends.
const (
	DatastoreDHIS2  = "dhis2"
	DatastoreBadger = "badger"
)

// DatastoreConfig selects where dataStore documents live.
type DatastoreConfig struct {
	Backend  string `koanf:"backend"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds secrets.
type SecurityConfig struct {
	// EncryptionKey derives the key for "enc:" data-source passwords.
	// Empty disables decryption; encrypted passwords are then rejected.
	EncryptionKey string `koanf:"encryption_key"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// GlobalsConfig overrides the well-known global dimension ids, keyed by id
// with the resource code as value. Empty keeps the built-in set.
type GlobalsConfig struct {
	Dimensions map[string]string `koanf:"dimensions"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
