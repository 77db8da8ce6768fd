package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/chefai-go/internal/rag"
)

const ollamaTimeout = 60 * time.Second

// OllamaEmbedder embeds recipes through a local Ollama server's /api/embed
// endpoint. all-minilm, the default model, yields 384 values per text.
type OllamaEmbedder struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// OllamaConfig configures NewOllamaEmbedder.
type OllamaConfig struct {
	// Host is the server base URL, for example "http://localhost:11434".
	Host string
	// Model is the embedding model, for example "all-minilm".
	Model string
	// Dimensions, when positive, is requested from the server and checked
	// on every returned vector.
	Dimensions int
}

// NewOllamaEmbedder returns an embedder for cfg. It does not contact the server.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		endpoint:   strings.TrimRight(cfg.Host, "/") + "/api/embed",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: ollamaTimeout},
	}
}

type ollamaEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Truncate   bool     `json:"truncate"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed returns one vector per text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{
		Model:      e.model,
		Input:      texts,
		Truncate:   true,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: request to %s failed: %w", e.endpoint, err)
	}
	defer resp.Body.Close()

	var out ollamaEmbedResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode/100 != 2 {
		return nil, e.statusError(resp.StatusCode, out.Error, decodeErr)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("ollama embedder: decode response: %w", decodeErr)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embedder: sent %d texts, got %d embeddings", len(texts), len(out.Embeddings))
	}
	for i, vec := range out.Embeddings {
		if err := rag.CheckDimensions(vec, e.dimensions); err != nil {
			return nil, fmt.Errorf("ollama embedder: text %d (model %s): %w", i, e.model, err)
		}
	}
	return out.Embeddings, nil
}

// statusError prefers the server's own message over the bare status code and
// points at the usual fix for a missing model.
func (e *OllamaEmbedder) statusError(code int, serverMsg string, decodeErr error) error {
	msg := fmt.Sprintf("HTTP %d", code)
	if decodeErr == nil && serverMsg != "" {
		msg = serverMsg
	}
	return fmt.Errorf("ollama embedder: %s (is %q pulled? run `ollama pull %s`)", msg, e.model, e.model)
}
