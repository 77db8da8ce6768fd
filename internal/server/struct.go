package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/judge"
	"github.com/54b3r/chefai-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds one /api/ask request: retrieval, generation and
	// judging together. Defaults to 2 minutes.
	AskTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /api/ask
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /api/ask.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Asker answers one question. *assistant.Pipeline satisfies it through its
// strict Ask method; tests inject a fake.
type Asker interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
}

// Evaluator grades an answer. *judge.Judge satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer, reference string) judge.Verdict
}

// Deps are the request-time collaborators of the server.
type Deps struct {
	// Asker is required.
	Asker Asker
	// Evaluator is optional; when nil answers are returned ungraded.
	Evaluator Evaluator
}

// Server serves the single-page UI and the JSON API in front of the
// assistant pipeline and the judge.
type Server struct {
	asker     Asker
	evaluator Evaluator
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Matches  []rag.Match `json:"matches"`
	// Evaluation is nil when no evaluator is configured.
	Evaluation *judge.Verdict `json:"evaluation,omitempty"`
}

// errorResponse is the JSON body of every non-2xx /api/ask response.
type errorResponse struct {
	Error string `json:"error"`
}
