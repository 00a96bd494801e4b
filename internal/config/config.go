// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package config loads service configuration with a clear precedence:
// environment variables over an optional YAML file over built-in defaults.
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
)

// ConfigPathEnvVar points at an explicit config file location.
const ConfigPathEnvVar = "TASTEWORLDS_CONFIG"

// envPrefix namespaces all environment overrides.
const envPrefix = "TASTEWORLDS_"

// DefaultConfigPaths are searched in order when no explicit path is set.
var DefaultConfigPaths = []string{
	"tasteworlds.yaml",
	"/etc/tasteworlds/config.yaml",
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Storage StorageConfig `koanf:"storage"`
	Catalog CatalogConfig `koanf:"catalog"`
	GenAI   GenAIConfig   `koanf:"genai"`
	Jobs    JobsConfig    `koanf:"jobs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// CORSOrigins is the allowed origin list for the browser UI.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitPerMinute bounds requests per client IP.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// StorageConfig configures BadgerDB.
type StorageConfig struct {
	Path string `koanf:"path"`

	// JobRetention is how long terminal job records stay readable.
	JobRetention time.Duration `koanf:"job_retention"`
}

// CatalogConfig configures the upstream music catalog client.
type CatalogConfig struct {
	BaseURL string        `koanf:"base_url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond and Burst feed the token bucket shared by all
	// catalog operations.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// GenAIConfig configures the embedding and extraction engines.
type GenAIConfig struct {
	APIKey          string `koanf:"api_key"`
	EmbeddingModel  string `koanf:"embedding_model"`
	ExtractionModel string `koanf:"extraction_model"`

	// EmbeddingBatchLimit caps texts per embedding call.
	EmbeddingBatchLimit int `koanf:"embedding_batch_limit"`
}

// JobsConfig configures the background job runner.
type JobsConfig struct {
	// QueueBuffer is the in-process queue depth before publishers block.
	QueueBuffer int `koanf:"queue_buffer"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 120,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Path:         "data/tasteworlds",
			JobRetention: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		GenAI: GenAIConfig{
			EmbeddingModel:      "gemini-embedding-001",
			ExtractionModel:     "gemini-2.0-flash",
			EmbeddingBatchLimit: 100,
		},
		Jobs: JobsConfig{
			QueueBuffer: 64,
		},
	}
}

// Load builds the configuration: defaults, then an optional YAML file,
// then TASTEWORLDS_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps TASTEWORLDS_CATALOG_BASE_URL to catalog.base_url. The
// first underscore separates the section from the key; later underscores
// stay part of the key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}

// findConfigFile returns the first existing config file path, or "".
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

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
