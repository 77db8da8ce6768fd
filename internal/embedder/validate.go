package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. If EMBEDDING_MODEL matches any
// of these, a warning is emitted so the operator knows they may have
// misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"gemini-",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate checks that the configuration names a supported backend and
// carries the credentials it needs.
func (c *Config) Validate() error {
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedder: EMBEDDING_DIMENSIONS must be positive, got %d", c.Dimensions)
	}
	if c.Model == "" {
		return fmt.Errorf("embedder: no embedding model resolved for backend %q: set EMBEDDING_MODEL", c.Provider)
	}

	switch c.Provider {
	case BackendOllama:
		if c.Endpoint == "" {
			return fmt.Errorf("embedder: ollama requires OLLAMA_HOST or EMBEDDING_ENDPOINT")
		}
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if c.Endpoint == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	case BackendGemini:
		if c.APIKey == "" && c.GeminiClient == nil {
			return fmt.Errorf("embedder: gemini requires GEMINI_API_KEY or EMBEDDING_API_KEY")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q: valid values are ollama, openai, azure, gemini", c.Provider)
	}
	return nil
}

// WarnIfChatModel logs a warning when the configured model looks like a chat
// model rather than an embedding model.
func (c *Config) WarnIfChatModel(log *slog.Logger) {
	if looksLikeChatModel(c.Model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model; "+
			"this will likely produce poor or broken embeddings",
			slog.String("model", c.Model),
			slog.String("hint", "use a dedicated embedding model e.g. all-minilm, text-embedding-3-small"),
		)
	}
}
