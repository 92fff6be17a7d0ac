// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Transport.MaxErrorBody != 64<<10 {
		t.Errorf("Transport.MaxErrorBody = %d, want 64KB", cfg.Transport.MaxErrorBody)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache = %+v, want enabled with 30s TTL", cfg.Cache)
	}
	if cfg.Scheduler.DefaultInterval != 0 {
		t.Errorf("Scheduler.DefaultInterval = %v, want 0 (off)", cfg.Scheduler.DefaultInterval)
	}
	if cfg.Datastore.Backend != DatastoreDHIS2 {
		t.Errorf("Datastore.Backend = %q, want dhis2", cfg.Datastore.Backend)
	}
	if cfg.Globals.Dimensions["m5D13FqKZwN"] != "pe" {
		t.Errorf("period global id missing from defaults: %v", cfg.Globals.Dimensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"missing instance url", func(c *Config) { c.CurrentInstance.URL = "" }, "DHIS2_URL is required"},
		{"bad instance scheme", func(c *Config) { c.CurrentInstance.URL = "ftp://x" }, "DHIS2_URL is invalid"},
		{"instance query string", func(c *Config) { c.CurrentInstance.URL = "https://x/dhis?a=1" }, "query parameters"},
		{"username without password", func(c *Config) { c.CurrentInstance.Username = "admin" }, "must be set together"},
		{"placeholder password", func(c *Config) {
			c.CurrentInstance.Username = "admin"
			c.CurrentInstance.Password = "changeme"
		}, "placeholder"},
		{"burst missing", func(c *Config) { c.Transport.Burst = 0 }, "TRANSPORT_BURST"},
		{"no failure threshold", func(c *Config) { c.Transport.FailureThreshold = 0 }, "TRANSPORT_FAILURE_THRESHOLD"},
		{"cache ttl", func(c *Config) { c.Cache.TTL = 0 }, "CACHE_TTL"},
		{"cache max entries", func(c *Config) { c.Cache.MaxEntries = 0 }, "CACHE_MAX_ENTRIES"},
		{"min interval", func(c *Config) { c.Scheduler.MinInterval = 10 * time.Millisecond }, "REFRESH_MIN_INTERVAL"},
		{"badger without path", func(c *Config) {
			c.Datastore.Backend = DatastoreBadger
			c.Datastore.Path = ""
		}, "DATASTORE_PATH"},
		{"unknown datastore", func(c *Config) { c.Datastore.Backend = "s3" }, "DATASTORE_BACKEND"},
		{"short key", func(c *Config) { c.Security.EncryptionKey = "short" }, "ENCRYPTION_KEY"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"empty global resource", func(c *Config) { c.Globals.Dimensions["abc"] = "" }, "globals.dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_BadgerInMemory(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Datastore = DatastoreConfig{Backend: DatastoreBadger, InMemory: true}
	if err := cfg.Validate(); err != nil {
		t.Errorf("in-memory badger without path should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"DHIS2_URL":              "current_instance.url",
		"HTTP_PORT":              "server.port",
		"TRANSPORT_RATE_LIMIT":   "transport.rate_limit",
		"REFRESH_MIN_INTERVAL":   "scheduler.min_interval",
		"DATASTORE_BACKEND":      "datastore.backend",
		"LOG_LEVEL":              "logging.level",
		"PATH":                   "",
		"SOME_UNRELATED_SETTING": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

// Tests below mutate process environment and must not run in parallel.

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DHIS2_URL", "https://dhis.example.org/dev")
	t.Setenv("DHIS2_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.CurrentInstance.URL != "https://dhis.example.org/dev" {
		t.Errorf("URL = %q", cfg.CurrentInstance.URL)
	}
	if cfg.CurrentInstance.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.CurrentInstance.Timeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Cache.Enabled {
		t.Error("CACHE_ENABLED=false should disable the cache")
	}
}

func TestLoadWithKoanf_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
current_instance:
  url: https://file.example.org
scheduler:
  min_interval: 15s
datastore:
  backend: badger
  in_memory: true
globals:
  dimensions:
    customPeriod: pe
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.CurrentInstance.URL != "https://file.example.org" {
		t.Errorf("URL = %q", cfg.CurrentInstance.URL)
	}
	if cfg.Scheduler.MinInterval != 15*time.Second {
		t.Errorf("MinInterval = %v", cfg.Scheduler.MinInterval)
	}
	if cfg.Datastore.Backend != DatastoreBadger || !cfg.Datastore.InMemory {
		t.Errorf("Datastore = %+v", cfg.Datastore)
	}
	if cfg.Globals.Dimensions["customPeriod"] != "pe" {
		t.Errorf("file global not merged: %v", cfg.Globals.Dimensions)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env should override file: level = %q", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_Invalid(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATASTORE_BACKEND", "mongo")

	if _, err := LoadWithKoanf(); err == nil {
		t.Error("expected validation error")
	}
}

func TestCredentialEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	enc, err := NewCredentialEncryptor(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("NewCredentialEncryptor: %v", err)
	}

	sealed, err := enc.Seal("district")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, EncryptedPrefix) {
		t.Fatalf("sealed value missing prefix: %q", sealed)
	}

	got, err := enc.RevealPassword(sealed)
	if err != nil || got != "district" {
		t.Errorf("RevealPassword = %q, %v", got, err)
	}

	plain, err := enc.RevealPassword("plain-pass")
	if err != nil || plain != "plain-pass" {
		t.Errorf("plain passwords should pass through, got %q, %v", plain, err)
	}
}

func TestCredentialEncryptor_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewCredentialEncryptor(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty secret: got %v", err)
	}

	var nilEnc *CredentialEncryptor
	if _, err := nilEnc.RevealPassword("enc:abc"); !errors.Is(err, ErrNoEncryptor) {
		t.Errorf("nil encryptor: got %v", err)
	}

	enc, _ := NewCredentialEncryptor(strings.Repeat("a", 32))
	other, _ := NewCredentialEncryptor(strings.Repeat("b", 32))
	sealed, _ := enc.Seal("secret")
	if _, err := other.RevealPassword(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("wrong key: got %v", err)
	}
	if _, err := enc.Decrypt("!!!"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("bad base64: got %v", err)
	}
	if _, err := enc.Decrypt("AAAA"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("short: got %v", err)
	}
}

func TestMaskCredential(t *testing.T) {
	t.Parallel()

	tests := map[string]string{"": "", "abc": "****", "district": "****...rict"}
	for in, want := range tests {
		if got := MaskCredential(in); got != want {
			t.Errorf("MaskCredential(%q) = %q, want %q", in, got, want)
		}
	}
}
