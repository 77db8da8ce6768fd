package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatGenerator adapts an eino chat model to Generator. The prompt is sent
// as one user message. eino has no per-call response format option, so
// WithJSON is ignored here: JSON output is fixed when the chat model is
// built (provider builds a separate judge model with it enabled).
type ChatGenerator struct {
	// model is the underlying eino chat model.
	model model.BaseChatModel
	// name identifies the backend in traces and errors.
	name string
	// defaults are applied before the per-call options.
	defaults []Option
}

// NewChatGenerator wraps m. name appears in error messages and trace spans.
// defaults apply to every call unless a call overrides them.
func NewChatGenerator(m model.BaseChatModel, name string, defaults ...Option) *ChatGenerator {
	return &ChatGenerator{model: m, name: name, defaults: defaults}
}

// Generate implements Generator.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := Apply(append(append([]Option{}, g.defaults...), opts...)...)

	var modelOpts []model.Option
	if o.Temperature != nil {
		modelOpts = append(modelOpts, model.WithTemperature(*o.Temperature))
	}
	if o.MaxTokens != nil {
		modelOpts = append(modelOpts, model.WithMaxTokens(*o.MaxTokens))
	}

	// Attach globally registered handlers (e.g. Langfuse) to this call.
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      g.name,
		Type:      g.name,
		Component: components.ComponentOfChatModel,
	})

	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, modelOpts...)
	if err != nil {
		return "", fmt.Errorf("llm: %s generate: %w", g.name, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("llm: %s: %w", g.name, ErrEmptyResponse)
	}
	return msg.Content, nil
}
