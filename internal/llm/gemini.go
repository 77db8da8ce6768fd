package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini generateContent API directly. Unlike
// ChatGenerator it honours WithJSON by setting the response MIME type.
type GeminiGenerator struct {
	// client is the shared genai client.
	client *genai.Client
	// model is the Gemini model name (e.g. "gemini-2.5-flash").
	model string
	// defaults are applied before the per-call options.
	defaults []Option
}

// NewGeminiGenerator returns a Generator for model on client.
func NewGeminiGenerator(client *genai.Client, model string, defaults ...Option) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model, defaults: defaults}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := Apply(append(append([]Option{}, g.defaults...), opts...)...)

	cfg := &genai.GenerateContentConfig{}
	if o.Temperature != nil {
		cfg.Temperature = genai.Ptr(*o.Temperature)
	}
	if o.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*o.MaxTokens) //nolint:gosec // small positive config value
	}
	if o.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("llm: gemini %s: %w", g.model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("llm: gemini %s: %w", g.model, ErrEmptyResponse)
	}
	return text, nil
}
