// Package llm defines the Generator contract used for both answering and
// judging, with adapters for eino chat models and the native Gemini client.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm: model returned an empty response")

// Generator sends a single prompt to a language model and returns its text.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// Options are per-call sampling settings. Unset fields leave the model default.
type Options struct {
	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float32
	// MaxTokens caps the response length when non-nil.
	MaxTokens *int
	// JSON requests a JSON-only response where the backend supports it.
	JSON bool
}

// Option configures a single Generate call.
type Option func(*Options)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens caps the number of tokens generated.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = &n }
}

// WithJSON asks the backend for a JSON response.
func WithJSON() Option {
	return func(o *Options) { o.JSON = true }
}

// Apply folds opts into an Options value.
func Apply(opts ...Option) Options {
	var o Options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
