// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true,
}

// Validate checks for values the service cannot start with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateGenAI(); err != nil {
		return err
	}
	return c.validateJobs()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 1 {
		return fmt.Errorf("server.rate_limit_per_minute must be positive, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.JobRetention <= 0 {
		return fmt.Errorf("storage.job_retention must be positive, got %v", c.Storage.JobRetention)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return fmt.Errorf("catalog.base_url must be an http(s) URL, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.Token == "" {
		return fmt.Errorf("catalog.token is required")
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.requests_per_second must be positive, got %v", c.Catalog.RequestsPerSecond)
	}
	if c.Catalog.Burst < 1 {
		return fmt.Errorf("catalog.burst must be positive, got %d", c.Catalog.Burst)
	}
	return nil
}

func (c *Config) validateGenAI() error {
	if c.GenAI.APIKey == "" {
		return fmt.Errorf("genai.api_key is required")
	}
	if c.GenAI.EmbeddingModel == "" {
		return fmt.Errorf("genai.embedding_model is required")
	}
	if c.GenAI.ExtractionModel == "" {
		return fmt.Errorf("genai.extraction_model is required")
	}
	if c.GenAI.EmbeddingBatchLimit < 1 {
		return fmt.Errorf("genai.embedding_batch_limit must be positive, got %d", c.GenAI.EmbeddingBatchLimit)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.QueueBuffer < 1 {
		return fmt.Errorf("jobs.queue_buffer must be positive, got %d", c.Jobs.QueueBuffer)
	}
	return nil
}
