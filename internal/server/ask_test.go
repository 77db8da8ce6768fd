package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/judge"
	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/recipe"
)

// fakeAsker returns a canned answer or error and records the questions.
type fakeAsker struct {
	mu      sync.Mutex
	asked   []string
	answer  string
	matches []rag.Match
	err     error
}

func (f *fakeAsker) Ask(_ context.Context, q string) (*assistant.Answer, error) {
	f.mu.Lock()
	f.asked = append(f.asked, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.Answer{Question: q, Text: f.answer, Matches: f.matches}, nil
}

// fakeEvaluator returns a fixed verdict and records what it graded.
type fakeEvaluator struct {
	verdict  judge.Verdict
	question string
	answer   string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, q, a, _ string) judge.Verdict {
	f.question, f.answer = q, a
	return f.verdict
}

// newTestServer builds a Server without a listener for direct handler calls.
func newTestServer(a Asker, e Evaluator) *Server {
	return &Server{
		asker:     a,
		evaluator: e,
		cfg:       &Config{AskTimeout: time.Minute},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:   newServerMetrics(prometheus.NewRegistry()),
	}
}

// newRoutedServer builds a Server through New so routing and middleware are
// exercised, with an isolated registry.
func newRoutedServer(t *testing.T, deps Deps, cfg *Config) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.MetricsRegistry = reg
	cfg.MetricsGatherer = reg
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(deps, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, reg
}

func postAsk(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handleAsk(w, req)
	return w
}

func lasagnaMatches() []rag.Match {
	return []rag.Match{{
		ID:     "r1",
		Score:  0.91,
		Recipe: recipe.Recipe{ID: "r1", Title: "Vegan Lasagna", Instructions: "Layer and bake."},
	}}
}

func TestHandleAsk_Success(t *testing.T) {
	t.Parallel()

	asker := &fakeAsker{answer: "Layer noodles with tofu ricotta.", matches: lasagnaMatches()}
	eval := &fakeEvaluator{verdict: judge.Scored(8, "Accurate and complete.")}
	s := newTestServer(asker, eval)

	w := postAsk(s, `{"question":"  vegan lasagna?  "}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp askResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Question != "vegan lasagna?" {
		t.Errorf("question not trimmed: %q", resp.Question)
	}
	if resp.Answer != asker.answer {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Recipe.Title != "Vegan Lasagna" {
		t.Errorf("matches: got %+v", resp.Matches)
	}
	if resp.Evaluation == nil || resp.Evaluation.Score != 8 || resp.Evaluation.Status != judge.StatusScored {
		t.Errorf("evaluation: got %+v", resp.Evaluation)
	}
	if eval.question != "vegan lasagna?" || eval.answer != asker.answer {
		t.Errorf("judge saw (%q, %q)", eval.question, eval.answer)
	}
}

func TestHandleAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	cases := []string{`{"question":""}`, `{"question":"   \n\t"}`, `{}`}
	for _, body := range cases {
		asker := &fakeAsker{}
		s := newTestServer(asker, nil)
		w := postAsk(s, body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
			continue
		}
		var resp errorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != "Please enter a question or request first." {
			t.Errorf("%s: unexpected message %q", body, resp.Error)
		}
		if len(asker.asked) != 0 {
			t.Errorf("%s: pipeline must not run for an empty question", body)
		}
	}
}

func TestHandleAsk_InvalidJSON(t *testing.T) {
	t.Parallel()

	w := postAsk(newTestServer(&fakeAsker{}, nil), `not-json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleAsk_PipelineErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		err     error
		status  int
		outcome string
	}{
		{"retrieval", fmt.Errorf("%w: qdrant down", assistant.ErrRetrieval), http.StatusBadGateway, "retrieval_error"},
		{"generation", fmt.Errorf("%w: quota", assistant.ErrGeneration), http.StatusBadGateway, "generation_error"},
		{"prompt", fmt.Errorf("%w: prompt: render: bad template", assistant.ErrPrompt), http.StatusInternalServerError, "prompt_error"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			eval := &fakeEvaluator{verdict: judge.Scored(5, "x")}
			s := newTestServer(&fakeAsker{err: tc.err}, eval)
			w := postAsk(s, `{"question":"pancakes?"}`)

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected a human-readable error message")
			}
			if eval.answer != "" {
				t.Error("judge must not run when the pipeline failed")
			}
			if got := counterValue(t, s, tc.outcome); got != 1 {
				t.Errorf("ask counter{outcome=%q}: expected 1, got %v", tc.outcome, got)
			}
		})
	}
}

func TestHandleAsk_JudgeFailureIsStillOK(t *testing.T) {
	t.Parallel()

	eval := &fakeEvaluator{verdict: judge.Failed(judge.ReasonInvalidJSON)}
	s := newTestServer(&fakeAsker{answer: "Whisk and fry."}, eval)

	w := postAsk(s, `{"question":"pancakes?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp askResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Evaluation == nil || resp.Evaluation.Status != judge.StatusJudgeFailed {
		t.Fatalf("expected judge_failed evaluation, got %+v", resp.Evaluation)
	}
	if resp.Evaluation.Score != 0 || resp.Evaluation.Reason != judge.ReasonInvalidJSON {
		t.Errorf("unexpected sentinel: %+v", resp.Evaluation)
	}
}

func TestHandleAsk_NoEvaluator(t *testing.T) {
	t.Parallel()

	w := postAsk(newTestServer(&fakeAsker{answer: "ok"}, nil), `{"question":"q"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), `"evaluation"`) {
		t.Errorf("evaluation must be omitted without an evaluator: %s", w.Body.String())
	}
}

func TestNew_RequiresAsker(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}, &Config{MetricsRegistry: prometheus.NewRegistry()}); err == nil {
		t.Fatal("expected error for nil asker")
	}
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedServer(t, Deps{Asker: &fakeAsker{answer: "a"}}, &Config{APIKey: "secret"})
	h := s.Handler()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		auth   string
		status int
	}{
		{"ui", http.MethodGet, "/", "", "", http.StatusOK},
		{"health", http.MethodGet, "/api/health", "", "", http.StatusOK},
		{"ready", http.MethodGet, "/api/ready", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"ask unauthenticated", http.MethodPost, "/api/ask", `{"question":"q"}`, "", http.StatusUnauthorized},
		{"ask authenticated", http.MethodPost, "/api/ask", `{"question":"q"}`, "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.status, w.Code)
		}
		if w.Header().Get(requestIDHeader) == "" {
			t.Errorf("%s: missing %s header", tc.name, requestIDHeader)
		}
	}
}

func TestServer_UIIsEmbedded(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedServer(t, Deps{Asker: &fakeAsker{}}, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := w.Body.String()
	for _, want := range []string{"/api/ask", "Score: ", " / 10", "Reason: ", "Please enter a question or request first."} {
		if !strings.Contains(body, want) {
			t.Errorf("UI missing %q", want)
		}
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedServer(t, Deps{Asker: &fakeAsker{}}, &Config{Port: 0, Host: "127.0.0.1"})
	// Port 0 is replaced by the default in New; pick a free port instead.
	s.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestValidRequestID(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"":                     false,
		"short":                false,
		"abcdef0123456789":     true,
		"req-2026_10_18-abcd":  true,
		"bad id with spaces!!": false,
		"line\nbreak-injected": false,
		strings.Repeat("a", 65): false,
	}
	for id, want := range cases {
		if got := validRequestID(id); got != want {
			t.Errorf("validRequestID(%q): expected %v, got %v", id, want, got)
		}
	}
}

func TestRequestLogger_EchoesInboundID(t *testing.T) {
	t.Parallel()

	h := requestLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "trace-abcdef12")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "trace-abcdef12" {
		t.Errorf("expected inbound request ID echoed, got %q", got)
	}
}
