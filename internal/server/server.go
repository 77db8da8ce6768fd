// Package server implements the HTTP server that exposes the recipe
// assistant through a small JSON API and serves the embedded single-page UI.
// The server is started by the `chefai serve` CLI command.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/logging"
)

// emptyQuestion is returned when the submitted question is blank.
const emptyQuestion = "Please enter a question or request first."

// maxBodyBytes caps the /api/ask request body.
const maxBodyBytes = 64 << 10

//go:embed static
var staticFiles embed.FS

// New constructs a Server from the provided collaborators and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Asker == nil {
		return nil, fmt.Errorf("server: asker must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.AskTimeout == 0 {
		cfg.AskTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		// Must outlive the slowest ask: two model calls back to back.
		cfg.WriteTimeout = cfg.AskTimeout + 10*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		asker:     deps.Asker,
		evaluator: deps.Evaluator,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: CHEFAI_API_KEY is not set, /api/ask is unauthenticated")
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	rl.onReject = s.metrics.rateLimitedTotal.Inc
	s.stopRL = stop

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("server: embedded UI: %w", err)
	}

	mux := http.NewServeMux()
	s.handle(mux, "POST /api/ask", "ask",
		authMiddleware(cfg.APIKey, rl.middleware(http.HandlerFunc(s.handleAsk))))
	s.handle(mux, "GET /api/health", "health", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "GET /api/ready", "ready", http.HandlerFunc(s.handleReady))
	s.handle(mux, "GET /metrics", "metrics",
		promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	s.handle(mux, "GET /", "ui", http.FileServerFS(static))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      otelhttp.NewHandler(requestLogger(log, mux), "chefai"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped root handler. Used by tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("chefai server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("chefai server stopped")
		return nil
	}
}

// handleAsk handles POST /api/ask. It answers the question with the strict
// pipeline, grades the answer and returns both in one JSON response.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.observeAsk("bad_request", start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.observeAsk("bad_request", start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: emptyQuestion})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AskTimeout)
	defer cancel()

	ans, err := s.asker.Ask(ctx, question)
	if err != nil {
		status, msg, outcome := askFailure(err)
		log.Error("ask failed", slog.String("outcome", outcome), slog.Any("error", err))
		s.observeAsk(outcome, start)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	resp := askResponse{Question: question, Answer: ans.Text, Matches: ans.Matches}
	if s.evaluator != nil {
		v := s.evaluator.Evaluate(ctx, question, ans.Text, "")
		s.metrics.judgeVerdictsTotal.WithLabelValues(string(v.Status)).Inc()
		if v.OK() {
			s.metrics.judgeScore.Observe(float64(v.Score))
		}
		resp.Evaluation = &v
	}

	s.observeAsk("ok", start)
	writeJSON(w, http.StatusOK, resp)
}

// askFailure maps a pipeline error to an HTTP status, a short message for
// the UI and a metrics outcome label.
func askFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The assistant took too long to answer. Please try again.", "timeout"
	case errors.Is(err, assistant.ErrRetrieval):
		return http.StatusBadGateway, "Could not search the recipe knowledge base: " + err.Error(), "retrieval_error"
	case errors.Is(err, assistant.ErrGeneration):
		return http.StatusBadGateway, "Error generating response: " + err.Error(), "generation_error"
	case errors.Is(err, assistant.ErrPrompt):
		return http.StatusInternalServerError, "internal error", "prompt_error"
	default:
		return http.StatusInternalServerError, "internal error", "error"
	}
}

func (s *Server) observeAsk(outcome string, start time.Time) {
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("server: encode response", slog.Any("error", err))
	}
}
