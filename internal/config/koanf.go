// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/dashforge/internal/models"
)

// DefaultConfigPaths lists the paths searched for a config file. The first
// file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dashforge/config.yaml",
	"/etc/dashforge/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Host:              "0.0.0.0",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Environment:       "development",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		CurrentInstance: CurrentInstanceConfig{
			URL:     "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Transport: TransportConfig{
			RequestTimeout:      30 * time.Second,
			RateLimit:           20,
			Burst:               40,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			FailureThreshold:    5,
			MaxBatchConcurrency: 8,
			MaxErrorBody:        64 << 10,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        30 * time.Second,
			MaxEntries: 1024,
		},
		Scheduler: SchedulerConfig{
			DefaultInterval: 0,
			MinInterval:     5 * time.Second,
			FocusDebounce:   2 * time.Second,
			RunTimeout:      2 * time.Minute,
		},
		Datastore: DatastoreConfig{
			Backend: DatastoreDHIS2,
			Path:    "/data/dashforge/datastore",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Globals: GlobalsConfig{
			Dimensions: models.DefaultGlobalDimensions(),
		},
	}
}

// LoadWithKoanf loads configuration in three layers with precedence
// ENV > file > defaults, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DHIS2_URL -> current_instance.url, LOG_LEVEL -> logging.level, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Hosting DHIS2 instance
	"dhis2_url":      "current_instance.url",
	"dhis2_username": "current_instance.username",
	"dhis2_password": "current_instance.password",
	"dhis2_timeout":  "current_instance.timeout",

	// Outbound transport
	"transport_request_timeout":   "transport.request_timeout",
	"transport_rate_limit":        "transport.rate_limit",
	"transport_burst":             "transport.burst",
	"transport_breaker_max_reqs":  "transport.breaker_max_requests",
	"transport_breaker_interval":  "transport.breaker_interval",
	"transport_breaker_timeout":   "transport.breaker_timeout",
	"transport_failure_threshold": "transport.failure_threshold",
	"transport_batch_concurrency": "transport.max_batch_concurrency",
	"transport_max_error_body":    "transport.max_error_body",

	// Payload cache
	"cache_enabled":     "cache.enabled",
	"cache_ttl":         "cache.ttl",
	"cache_max_entries": "cache.max_entries",

	// Scheduler
	"refresh_default_interval": "scheduler.default_interval",
	"refresh_min_interval":     "scheduler.min_interval",
	"refresh_focus_debounce":   "scheduler.focus_debounce",
	"refresh_run_timeout":      "scheduler.run_timeout",

	// Document store
	"datastore_backend":   "datastore.backend",
	"datastore_path":      "datastore.path",
	"datastore_in_memory": "datastore.in_memory",

	// Security
	"encryption_key": "security.encryption_key",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever path changes. Callers guard their
// own config pointer during reloads.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
