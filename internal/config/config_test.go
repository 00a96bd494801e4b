// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns defaults patched with the required secrets.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Catalog.BaseURL = "https://catalog.example.com"
	cfg.Catalog.Token = "test-token"
	cfg.GenAI.APIKey = "test-key"
	return &cfg
}

func TestDefaultConfigIsValidWithSecrets(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tasteworlds.yaml")
	yamlContent := `
server:
  port: 9090
catalog:
  base_url: https://catalog.example.com
  token: file-token
genai:
  api_key: file-key
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("TASTEWORLDS_CATALOG_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Catalog.Token != "env-token" {
		t.Errorf("Catalog.Token = %q, want env-token (env overrides file)", cfg.Catalog.Token)
	}
	if cfg.GenAI.APIKey != "file-key" {
		t.Errorf("GenAI.APIKey = %q, want file-key", cfg.GenAI.APIKey)
	}
	// Defaults survive where neither file nor env set a value.
	if cfg.Storage.JobRetention != 24*time.Hour {
		t.Errorf("Storage.JobRetention = %v, want default 24h", cfg.Storage.JobRetention)
	}
}

func TestLoadFailsWithoutRequiredSecrets(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	if err == nil {
		t.Fatal("Load() without catalog credentials should fail validation")
	}
	if !strings.Contains(err.Error(), "catalog.base_url") {
		t.Errorf("error = %v, want mention of catalog.base_url", err)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TASTEWORLDS_SERVER_PORT", "server.port"},
		{"TASTEWORLDS_CATALOG_BASE_URL", "catalog.base_url"},
		{"TASTEWORLDS_GENAI_EMBEDDING_BATCH_LIMIT", "genai.embedding_batch_limit"},
		{"TASTEWORLDS_LOGGING", "logging"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"non-http catalog url", func(c *Config) { c.Catalog.BaseURL = "ftp://x" }, "catalog.base_url"},
		{"missing token", func(c *Config) { c.Catalog.Token = "" }, "catalog.token"},
		{"zero rate", func(c *Config) { c.Catalog.RequestsPerSecond = 0 }, "catalog.requests_per_second"},
		{"missing api key", func(c *Config) { c.GenAI.APIKey = "" }, "genai.api_key"},
		{"zero batch limit", func(c *Config) { c.GenAI.EmbeddingBatchLimit = 0 }, "embedding_batch_limit"},
		{"zero queue buffer", func(c *Config) { c.Jobs.QueueBuffer = 0 }, "jobs.queue_buffer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
