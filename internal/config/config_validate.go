// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/dashforge/internal/logging"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateCurrentInstance,
		c.validateTransport,
		c.validateCache,
		c.validateScheduler,
		c.validateDatastore,
		c.validateSecurity,
		c.validateLogging,
		c.validateGlobals,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive when rate limiting is enabled")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
		}
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	if c.IsProduction() {
		for _, origin := range c.Server.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateCurrentInstance() error {
	if c.CurrentInstance.URL == "" {
		return fmt.Errorf("DHIS2_URL is required")
	}
	if err := validateHTTPURL(c.CurrentInstance.URL, "DHIS2_URL"); err != nil {
		return fmt.Errorf("DHIS2_URL is invalid: %w", err)
	}
	if (c.CurrentInstance.Username == "") != (c.CurrentInstance.Password == "") {
		return fmt.Errorf("DHIS2_USERNAME and DHIS2_PASSWORD must be set together")
	}
	if c.CurrentInstance.Password != "" && containsPlaceholder(c.CurrentInstance.Password) {
		return fmt.Errorf("DHIS2_PASSWORD contains a placeholder value, set a real password")
	}
	if c.CurrentInstance.Timeout <= 0 {
		return fmt.Errorf("DHIS2_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateTransport() error {
	t := c.Transport
	if t.RequestTimeout <= 0 {
		return fmt.Errorf("TRANSPORT_REQUEST_TIMEOUT must be positive")
	}
	if t.RateLimit < 0 {
		return fmt.Errorf("TRANSPORT_RATE_LIMIT must not be negative")
	}
	if t.RateLimit > 0 && t.Burst < 1 {
		return fmt.Errorf("TRANSPORT_BURST must be at least 1 when TRANSPORT_RATE_LIMIT is set")
	}
	if t.FailureThreshold == 0 {
		return fmt.Errorf("TRANSPORT_FAILURE_THRESHOLD must be at least 1")
	}
	if t.BreakerTimeout <= 0 {
		return fmt.Errorf("TRANSPORT_BREAKER_TIMEOUT must be positive")
	}
	if t.MaxBatchConcurrency < 1 {
		return fmt.Errorf("TRANSPORT_BATCH_CONCURRENCY must be at least 1")
	}
	if t.MaxErrorBody < 0 {
		return fmt.Errorf("TRANSPORT_MAX_ERROR_BODY must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when the cache is enabled")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	s := c.Scheduler
	if s.MinInterval < time.Second {
		return fmt.Errorf("REFRESH_MIN_INTERVAL must be at least 1s")
	}
	if s.DefaultInterval < 0 {
		return fmt.Errorf("REFRESH_DEFAULT_INTERVAL must not be negative")
	}
	if s.FocusDebounce < 0 {
		return fmt.Errorf("REFRESH_FOCUS_DEBOUNCE must not be negative")
	}
	if s.RunTimeout <= 0 {
		return fmt.Errorf("REFRESH_RUN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatastore() error {
	switch c.Datastore.Backend {
	case DatastoreDHIS2:
		return nil
	case DatastoreBadger:
		if !c.Datastore.InMemory && c.Datastore.Path == "" {
			return fmt.Errorf("DATASTORE_PATH is required when DATASTORE_BACKEND=badger")
		}
		return nil
	default:
		return fmt.Errorf("DATASTORE_BACKEND must be one of: dhis2, badger")
	}
}

func (c *Config) validateSecurity() error {
	key := c.Security.EncryptionKey
	if key == "" {
		return nil
	}
	if len(key) < 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be at least 32 characters")
	}
	if containsPlaceholder(key) {
		return fmt.Errorf("ENCRYPTION_KEY contains a placeholder value, generate a random key")
	}
	return nil
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateGlobals() error {
	for id, resource := range c.Globals.Dimensions {
		if strings.TrimSpace(id) == "" || strings.TrimSpace(resource) == "" {
			return fmt.Errorf("globals.dimensions entries need a non-empty id and resource")
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// placeholderPatterns catch secrets copied from example configs.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
