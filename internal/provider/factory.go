package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"google.golang.org/genai"
)

// ConfigFromEnv resolves provider configuration from environment variables.
// MODEL_PROVIDER selects the backend; each backend uses its own native
// credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER    = gemini | openai | azure | ollama | ark (default: gemini)
//
//	Gemini:  GEMINI_API_KEY (or GOOGLE_API_KEY), GEMINI_MODEL (default: gemini-2.0-flash)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini), OPENAI_BASE_URL
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	Ark:     ARK_API_KEY, ARK_MODEL, ARK_BASE_URL
//
//	Shared:  JUDGE_MODEL, JUDGE_TEMPERATURE (default: 0.2),
//	         MODEL_TEMPERATURE (unset: model default), MODEL_MAX_TOKENS (unset: model default)
func ConfigFromEnv() *Config {
	cfg := &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendGemini))),
		Gemini: ProviderGemini{
			APIKey: firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Model:  getEnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		},
		OpenAI: ProviderOpenAI{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   getEnvOrDefault("OPENAI_MODEL", DefaultOpenAIModel),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ollama: ProviderOllama{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", DefaultOllamaModel),
		},
		Ark: ProviderArk{
			APIKey:  os.Getenv("ARK_API_KEY"),
			Model:   os.Getenv("ARK_MODEL"),
			BaseURL: os.Getenv("ARK_BASE_URL"),
		},
		JudgeModel:       os.Getenv("JUDGE_MODEL"),
		JudgeTemperature: getEnvFloat32("JUDGE_TEMPERATURE", DefaultJudgeTemperature),
		MaxTokens:        getEnvInt("MODEL_MAX_TOKENS", 0),
	}
	if v := os.Getenv("MODEL_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			t := float32(f)
			cfg.Temperature = &t
		}
	}
	return cfg
}

// AnswerModel returns the model name used for answers on the selected backend.
func (c *Config) AnswerModel() string {
	switch c.Backend {
	case BackendGemini:
		return c.Gemini.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendOllama:
		return c.Ollama.Model
	case BackendArk:
		return c.Ark.Model
	default:
		return ""
	}
}

// ResolvedJudgeModel returns the model name used for judging.
func (c *Config) ResolvedJudgeModel() string {
	if c.JudgeModel != "" {
		return c.JudgeModel
	}
	if c.Backend == BackendGemini {
		return DefaultGeminiJudgeModel
	}
	return c.AnswerModel()
}

// New constructs the answer and judge generators from an explicit Config.
// It validates the config first so callers get a clear error at startup
// rather than on the first request.
func New(ctx context.Context, cfg *Config) (*Models, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
		}
		return newGemini(ctx, cfg, client)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q: valid values are gemini, openai, azure, ollama, ark", cfg.Backend)
	}
}

// NewFromEnv is shorthand for New(ctx, ConfigFromEnv()).
func NewFromEnv(ctx context.Context) (*Models, error) {
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

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
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
