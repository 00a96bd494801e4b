// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mvance/tasteworlds/internal/catalog"
	"github.com/mvance/tasteworlds/internal/config"
	"github.com/mvance/tasteworlds/internal/embedding"
	"github.com/mvance/tasteworlds/internal/extraction"
	"github.com/mvance/tasteworlds/internal/pipeline"
	"github.com/mvance/tasteworlds/internal/taste"
)

// engines bundles the model builder and playlist generator the job runner
// dispatches to.
type engines struct {
	builder   *taste.Builder
	generator *pipeline.Generator
}

// initEngines wires the catalog client, GenAI engines, and the build and
// generate pipelines.
func initEngines(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*engines, error) {
	limiter := rate.NewLimiter(rate.Limit(cfg.Catalog.RequestsPerSecond), cfg.Catalog.Burst)
	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Token:   cfg.Catalog.Token,
		Timeout: cfg.Catalog.Timeout,
	}, limiter, logger)

	// All catalog traffic goes through the circuit breaker.
	cat := catalog.NewBreakerClient(client, logger)

	embedder, err := embedding.NewGenAIEngine(ctx, embedding.Config{
		APIKey:     cfg.GenAI.APIKey,
		Model:      cfg.GenAI.EmbeddingModel,
		BatchLimit: cfg.GenAI.EmbeddingBatchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding engine: %w", err)
	}

	extractor, err := extraction.NewGenAIExtractor(ctx, extraction.Config{
		APIKey: cfg.GenAI.APIKey,
		Model:  cfg.GenAI.ExtractionModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create extraction engine: %w", err)
	}

	builder := taste.NewBuilder(embedder, extractor, taste.BuilderConfig{}, logger)
	generator := pipeline.NewGenerator(cat, embedder, pipeline.GradientCover, logger)

	return &engines{builder: builder, generator: generator}, nil
}
