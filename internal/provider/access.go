package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CheckAccess verifies at startup that the configured models can be
// reached with the configured credentials. On gemini each model is looked
// up with Models.Get; on ollama the server must answer /api/tags. Other
// backends have no cheap probe and are checked on first use.
func (m *Models) CheckAccess(ctx context.Context) error {
	switch m.backend {
	case BackendGemini:
		for _, name := range uniq(m.AnswerModel, m.JudgeModel) {
			if _, err := m.GeminiClient.Models.Get(ctx, name, nil); err != nil {
				return fmt.Errorf("provider: cannot access %s: check your API key and permissions: %w", name, err)
			}
		}
	case BackendOllama:
		if err := pingOllama(ctx, m.host); err != nil {
			return fmt.Errorf("provider: cannot access ollama at %s: %w", m.host, err)
		}
	}
	return nil
}

// Ping is a lightweight readiness probe for the model backend.
func (m *Models) Ping(ctx context.Context) error {
	switch m.backend {
	case BackendGemini:
		if _, err := m.GeminiClient.Models.Get(ctx, m.AnswerModel, nil); err != nil {
			return fmt.Errorf("provider: gemini: %w", err)
		}
	case BackendOllama:
		return pingOllama(ctx, m.host)
	}
	return nil
}

// pingOllama issues GET /api/tags against host.
func pingOllama(ctx context.Context, host string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(host, "/")+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("provider: ollama ping: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider: ollama ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider: ollama ping: HTTP %d", resp.StatusCode)
	}
	return nil
}

func uniq(names ...string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
