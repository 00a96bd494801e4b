// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package extraction maps a user's free-text onboarding answers to a
// structured world description via a single schema-constrained language
// model call. Parsing failures are hard failures; there is no heuristic
// fallback for malformed model output.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/mvance/tasteworlds/internal/taste"
)

const defaultModel = "gemini-2.0-flash"

// Config configures the GenAI extraction engine.
type Config struct {
	APIKey string
	Model  string
}

// GenAIExtractor performs the structured world-extraction call.
type GenAIExtractor struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

var _ taste.Extractor = (*GenAIExtractor)(nil)

// NewGenAIExtractor creates a GenAI extraction engine.
func NewGenAIExtractor(ctx context.Context, cfg Config, logger zerolog.Logger) (*GenAIExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GenAIExtractor{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "extractor").Logger(),
	}, nil
}

// ExtractWorld runs one structured-output generation call and parses the
// result. Machine-parseable output is requested via a response schema; a
// response that still fails to parse surfaces as ErrWorldExtractionFailed.
func (e *GenAIExtractor) ExtractWorld(ctx context.Context, req taste.ExtractRequest) (*taste.ExtractedWorld, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractedWorldSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("world extraction call: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", taste.ErrWorldExtractionFailed)
	}

	var world taste.ExtractedWorld
	if err := json.Unmarshal([]byte(text), &world); err != nil {
		e.logger.Error().Err(err).Str("model", e.model).Msg("World extraction response is not parseable")
		return nil, fmt.Errorf("%w: %v", taste.ErrWorldExtractionFailed, err)
	}
	if world.WorldName == "" {
		return nil, fmt.Errorf("%w: missing world_name", taste.ErrWorldExtractionFailed)
	}

	return &world, nil
}

// buildPrompt assembles the extraction prompt from the transcript and the
// computed taste context.
func buildPrompt(req taste.ExtractRequest) string {
	var b strings.Builder

	b.WriteString("You are building a personalized music taste world from a listener interview.\n")
	b.WriteString("Derive a world name, a prose description, emotional geometry scores, keyword sets, ")
	b.WriteString("and 3 to 5 named intersections (points of view into the world), each with a short ")
	b.WriteString("free-text bias description such as \"darker and slower\" or \"brighter, more organic\".\n\n")

	b.WriteString("Interview transcript:\n")
	b.WriteString(req.Transcript)
	b.WriteString("\n\n")

	b.WriteString("Computed taste summary: ")
	b.WriteString(req.TasteSummary)
	b.WriteString("\n")

	if len(req.TopGenres) > 0 {
		b.WriteString("Top genres: ")
		b.WriteString(strings.Join(req.TopGenres, ", "))
		b.WriteString("\n")
	}
	if len(req.CustomKeywords) > 0 {
		b.WriteString("Listener-requested keywords: ")
		b.WriteString(strings.Join(req.CustomKeywords, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nEmotional geometry axes run from -1 to 1: darkness (dark to warm), ")
	b.WriteString("expanse (intimate to expansive), texture (acoustic to electronic).\n")

	return b.String()
}

// extractedWorldSchema constrains the model output to the ExtractedWorld
// wire shape.
func extractedWorldSchema() *genai.Schema {
	axis := &genai.Schema{Type: genai.TypeNumber}
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"world_name":  {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"emotional_geometry": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"darkness": axis,
					"expanse":  axis,
					"texture":  axis,
				},
				Required: []string{"darkness", "expanse", "texture"},
			},
			"keywords":         stringList,
			"exclude_keywords": stringList,
			"intersections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":             {Type: genai.TypeString},
						"description":      {Type: genai.TypeString},
						"bias_description": {Type: genai.TypeString},
					},
					Required: []string{"name", "description", "bias_description"},
				},
			},
		},
		Required: []string{"world_name", "description", "emotional_geometry", "keywords", "exclude_keywords", "intersections"},
	}
}
