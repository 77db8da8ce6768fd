package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func newTestGeminiClient(t *testing.T, h http.HandlerFunc) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	if err != nil {
		t.Fatalf("genai.NewClient: %v", err)
	}
	return client
}

func TestGeminiGenerator_JSONMode(t *testing.T) {
	t.Parallel()

	var body map[string]any
	client := newTestGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\": 8, \"reason\": \"ok\"}"}]}}]}`))
	})

	g := NewGeminiGenerator(client, "gemini-2.5-flash")
	got, err := g.Generate(context.Background(), "rate this", WithTemperature(0.2), WithJSON())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"score": 8, "reason": "ok"}` {
		t.Errorf("got %q", got)
	}

	gc, _ := body["generationConfig"].(map[string]any)
	if gc["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType not set: %v", gc)
	}
	if temp, _ := gc["temperature"].(float64); temp < 0.19 || temp > 0.21 {
		t.Errorf("temperature not set: %v", gc["temperature"])
	}
}

func TestGeminiGenerator_EmptyResponse(t *testing.T) {
	t.Parallel()

	client := newTestGeminiClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := NewGeminiGenerator(client, "gemini-2.0-flash").Generate(context.Background(), "hi")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("want ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiGenerator_APIError(t *testing.T) {
	t.Parallel()

	client := newTestGeminiClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`))
	})

	_, err := NewGeminiGenerator(client, "gemini-2.0-flash").Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrEmptyResponse) {
		t.Error("API error should not be reported as an empty response")
	}
}
