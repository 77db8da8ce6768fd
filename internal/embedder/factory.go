// Package embedder provides rag.Embedder implementations for the supported
// embedding backends and a factory that selects one from configuration.
//
// Every backend is asked for, and checked against, the configured vector
// size (384 by default) so that ingest and query vectors always share one
// embedding space.
package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"google.golang.org/genai"

	"github.com/54b3r/chefai-go/internal/rag"
)

// Supported backends.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
	BackendGemini = "gemini"
)

// Default embedding models per backend. Each produces, or can be truncated
// to, rag.DefaultDimensions values.
const (
	defaultOllamaModel = "all-minilm"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"
)

// Config holds the resolved embedding configuration.
type Config struct {
	// Provider selects the backend: ollama, openai, azure, gemini.
	Provider string
	// Model is the embedding model name.
	Model string
	// Dimensions is the vector size requested from the backend.
	Dimensions int
	// APIKey authenticates against openai, azure and gemini.
	APIKey string
	// Endpoint is the backend base URL (Ollama host, OpenAI base URL, Azure endpoint).
	Endpoint string
	// AzureAPIVersion is the Azure OpenAI REST API version.
	AzureAPIVersion string
	// GeminiClient is reused for the gemini backend when set, so the process
	// keeps a single genai client.
	GeminiClient *genai.Client
}

// ConfigFromEnv resolves embedding configuration from environment variables.
//
//	EMBEDDING_PROVIDER   = ollama | openai | azure | gemini (default: ollama)
//	EMBEDDING_MODEL      overrides the per-backend default model
//	EMBEDDING_DIMENSIONS overrides the vector size (default: 384)
//	EMBEDDING_API_KEY    overrides the inherited key (OPENAI_API_KEY, AZURE_OPENAI_API_KEY, GEMINI_API_KEY)
//	EMBEDDING_ENDPOINT   overrides the inherited endpoint (OLLAMA_HOST, OPENAI_BASE_URL, AZURE_OPENAI_ENDPOINT)
func ConfigFromEnv() *Config {
	cfg := &Config{
		Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", BackendOllama),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", rag.DefaultDimensions),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
	}

	switch cfg.Provider {
	case BackendOllama:
		cfg.Model = firstNonEmpty(cfg.Model, defaultOllamaModel)
		cfg.Endpoint = firstNonEmpty(cfg.Endpoint, os.Getenv("OLLAMA_HOST"), "http://localhost:11434")
	case BackendOpenAI:
		cfg.Model = firstNonEmpty(cfg.Model, defaultOpenAIModel)
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		cfg.Endpoint = firstNonEmpty(cfg.Endpoint, os.Getenv("OPENAI_BASE_URL"))
	case BackendAzure:
		cfg.Model = firstNonEmpty(cfg.Model, defaultOpenAIModel)
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("AZURE_OPENAI_API_KEY"))
		cfg.Endpoint = firstNonEmpty(cfg.Endpoint, os.Getenv("AZURE_OPENAI_ENDPOINT"))
		cfg.AzureAPIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01")
	case BackendGemini:
		cfg.Model = firstNonEmpty(cfg.Model, defaultGeminiModel)
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	}

	return cfg
}

// New constructs the embedder selected by cfg. It validates cfg first so
// callers get a clear error at startup rather than on the first embed call.
func New(ctx context.Context, cfg *Config) (rag.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case BackendOllama:
		return NewOllamaEmbedder(&OllamaConfig{
			Host:       cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case BackendOpenAI, BackendAzure:
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Azure:      cfg.Provider == BackendAzure,
			APIVersion: cfg.AzureAPIVersion,
		}), nil

	case BackendGemini:
		client := cfg.GeminiClient
		if client == nil {
			c, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  cfg.APIKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("embedder: failed to create Gemini client: %w", err)
			}
			client = c
		}
		return NewGeminiEmbedder(client, cfg.Model, cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q: valid values are ollama, openai, azure, gemini", cfg.Provider)
	}
}

// NewFromEnv is shorthand for New(ctx, ConfigFromEnv()).
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	return New(ctx, ConfigFromEnv())
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
