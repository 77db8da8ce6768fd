// Package assistant runs chefai's query-time pipeline: retrieve the nearest
// recipes, compose the grounded prompt, and generate an answer. Ask
// propagates every failure for interactive callers; AskWithFallback
// substitutes a placeholder context when retrieval fails, for batch runs.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/chefai-go/internal/budget"
	"github.com/54b3r/chefai-go/internal/llm"
	"github.com/54b3r/chefai-go/internal/rag"
)

// NoContext is the context block used when retrieval yields nothing.
const NoContext = "No relevant recipes found."

var (
	// ErrRetrieval marks a failed vector-store or embedding call.
	ErrRetrieval = errors.New("assistant: retrieval failed")
	// ErrGeneration marks a failed answer generation.
	ErrGeneration = errors.New("assistant: generation failed")
	// ErrPrompt marks a prompt template that could not be rendered.
	ErrPrompt = errors.New("assistant: prompt composition failed")
)

// Composer renders the answer prompt. prompt.Composer implements it.
type Composer interface {
	Compose(question string, matches []rag.Match) (string, error)
	ComposeContext(question, context string) (string, error)
}

// Config wires the collaborators of a Pipeline.
type Config struct {
	// Retriever finds the top-k recipes for a question.
	Retriever rag.Retriever
	// Composer renders the prompt.
	Composer Composer
	// Generator produces the answer.
	Generator llm.Generator
	// MaxPromptTokens triggers a warning when exceeded. Zero uses
	// budget.DefaultMaxPromptTokens; negative disables the check.
	MaxPromptTokens int
	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

// Answer is the result of one question.
type Answer struct {
	// Question is the question as asked.
	Question string `json:"question"`
	// Text is the generated answer.
	Text string `json:"answer"`
	// Matches are the retrieved recipes, best first.
	Matches []rag.Match `json:"matches"`
	// Prompt is the exact prompt sent to the model.
	Prompt string `json:"-"`
	// Fallback is true when NoContext replaced the retrieved context.
	Fallback bool `json:"fallback,omitempty"`
}

// Pipeline answers questions. It holds no per-request state and is safe for
// concurrent use when its collaborators are.
type Pipeline struct {
	retriever rag.Retriever
	composer  Composer
	generator llm.Generator
	maxTokens int
	log       *slog.Logger
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("assistant: retriever must not be nil")
	}
	if cfg.Composer == nil {
		return nil, fmt.Errorf("assistant: composer must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("assistant: generator must not be nil")
	}
	maxTokens := cfg.MaxPromptTokens
	if maxTokens == 0 {
		maxTokens = budget.DefaultMaxPromptTokens
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		retriever: cfg.Retriever,
		composer:  cfg.Composer,
		generator: cfg.Generator,
		maxTokens: maxTokens,
		log:       log,
	}, nil
}

// Ask retrieves, composes and generates. Retrieval errors wrap
// ErrRetrieval, template errors wrap ErrPrompt and generation errors wrap
// ErrGeneration. An empty retrieval is not an error: the prompt then carries
// an empty context block.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	matches, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	text, err := p.composer.Compose(question, matches)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrompt, err)
	}
	return p.generate(ctx, &Answer{Question: question, Matches: matches, Prompt: text})
}

// AskWithFallback behaves like Ask except that a retrieval error, or a
// retrieval with no matches, is logged and replaced by the NoContext
// placeholder. Template and generation errors still wrap ErrPrompt and
// ErrGeneration.
func (p *Pipeline) AskWithFallback(ctx context.Context, question string) (*Answer, error) {
	matches, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		p.log.Warn("assistant: retrieval failed, using placeholder context",
			slog.String("question", question),
			slog.String("error", err.Error()),
		)
	}

	var text string
	fallback := err != nil || len(matches) == 0
	if fallback {
		text, err = p.composer.ComposeContext(question, NoContext)
	} else {
		text, err = p.composer.Compose(question, matches)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrompt, err)
	}
	return p.generate(ctx, &Answer{Question: question, Matches: matches, Prompt: text, Fallback: fallback})
}

func (p *Pipeline) generate(ctx context.Context, a *Answer) (*Answer, error) {
	if n, over := budget.Exceeds(a.Prompt, p.maxTokens); over {
		p.log.Warn("assistant: prompt exceeds token budget",
			slog.Int("estimated_tokens", n),
			slog.Int("max_tokens", p.maxTokens),
		)
	}

	text, err := p.generator.Generate(ctx, a.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	a.Text = text

	p.log.Debug("assistant: answered",
		slog.Int("matches", len(a.Matches)),
		slog.Bool("fallback", a.Fallback),
		slog.Int("answer_chars", len(text)),
	)
	return a, nil
}
