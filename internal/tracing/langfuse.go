// Package tracing connects eino's callback system to Langfuse so every
// generation and judge call made through an eino chat model shows up as a
// trace.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is a self-hosted Langfuse on the local machine.
const defaultHost = "http://localhost:3000"

// Config holds the Langfuse credentials.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	return Config{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool { return c.PublicKey != "" && c.SecretKey != "" }

// Setup builds the Langfuse handler from the environment and registers it
// globally. The returned flush must run before exit; it is a no-op when
// tracing is disabled, which the bool reports.
func Setup() (flush func(), enabled bool) {
	h, flush, ok := NewHandler(ConfigFromEnv())
	if !ok {
		return func() {}, false
	}
	callbacks.AppendGlobalHandlers(h)
	return flush, true
}

// NewHandler builds a Langfuse callback handler without registering it.
func NewHandler(cfg Config) (callbacks.Handler, func(), bool) {
	if !cfg.Enabled() {
		return nil, nil, false
	}
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})
	return handler, flusher, true
}
