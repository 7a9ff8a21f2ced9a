package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Generator produces narrative text from a system instruction and a prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiGenerator implements Generator on the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiGenerator creates a Gemini-backed generator
func NewGeminiGenerator(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	return &GeminiGenerator{
		client: client,
		model:  model,
		log:    log.With().Str("client", "gemini").Logger(),
	}, nil
}

// Generate sends the prompt with an optional system instruction and returns the text reply
func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		}
	}

	g.log.Debug().Str("model", g.model).Int("prompt_len", len(prompt)).Msg("Generating content")

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return sb.String(), nil
}
