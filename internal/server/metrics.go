package server

// Metrics for the HTTP server, plus the helpers handlers and middleware use
// to record them.

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// askRequestsTotal counts completed /api/ask requests, partitioned by
	// outcome: "ok", "bad_request", "timeout", "retrieval_error",
	// "generation_error" or "error".
	askRequestsTotal *prometheus.CounterVec

	// askDurationSeconds records the wall-clock duration of each /api/ask
	// request including the judge call.
	askDurationSeconds *prometheus.HistogramVec

	// judgeVerdictsTotal counts judge verdicts by status.
	judgeVerdictsTotal *prometheus.CounterVec

	// judgeScore is the distribution of successful judge scores.
	judgeScore prometheus.Histogram

	// rateLimitedTotal counts requests rejected by the per-IP limiter.
	rateLimitedTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, which keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		askRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chefai",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total number of /api/ask requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		askDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chefai",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/ask requests from receipt to response.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		judgeVerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chefai",
			Subsystem: "judge",
			Name:      "verdicts_total",
			Help:      "Total number of judge verdicts, partitioned by status.",
		}, []string{"status"}),

		judgeScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chefai",
			Subsystem: "judge",
			Name:      "score",
			Help:      "Distribution of judge scores on the 1 to 10 scale.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),

		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chefai",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-IP rate limiter.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chefai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chefai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// handle registers h on mux under pattern, recording the http_* metrics
// with the given handler label.
func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.Handler) {
	mux.Handle(pattern, s.instrument(name, h))
}

// instrument wraps h so every request updates the http_* metrics.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
