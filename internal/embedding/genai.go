// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package embedding provides the text-embedding provider used for semantic
// scoring, backed by Google's Gemini API.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
)

// defaultModel produces 768-dimensional vectors.
const defaultModel = "gemini-embedding-001"

// defaultBatchLimit is the provider's per-call content cap.
const defaultBatchLimit = 100

// Config configures the GenAI embedding engine.
type Config struct {
	APIKey string
	Model  string

	// BatchLimit caps texts per EmbedBatch call; callers chunk around it.
	BatchLimit int
}

// GenAIEngine generates embeddings using Google's Gemini API. It embeds
// with the semantic-similarity task type, matching how the vectors are
// consumed (cosine similarity against a centroid).
type GenAIEngine struct {
	client     *genai.Client
	model      string
	batchLimit int
}

var _ taste.Embedder = (*GenAIEngine)(nil)

// NewGenAIEngine creates a GenAI embedding engine.
func NewGenAIEngine(ctx context.Context, cfg Config) (*GenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GenAIEngine{
		client:     client,
		model:      model,
		batchLimit: batchLimit,
	}, nil
}

// EmbedBatch generates one embedding per text in a single provider call.
// Inputs longer than BatchLimit are the caller's responsibility to chunk.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		metrics.EmbeddingRequests.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float64, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vector := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vector[j] = float64(v)
		}
		embeddings[i] = vector
	}

	metrics.EmbeddingRequests.WithLabelValues("success").Inc()
	metrics.EmbeddingTexts.Add(float64(len(texts)))

	return embeddings, nil
}

// BatchLimit returns the maximum number of texts per EmbedBatch call.
func (e *GenAIEngine) BatchLimit() int {
	return e.batchLimit
}

// Name identifies the engine in logs.
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
