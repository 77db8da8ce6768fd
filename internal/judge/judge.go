// Package judge scores generated answers with a second model call and
// normalises every failure into a tagged Verdict. Evaluate never returns
// an error: malformed output, out-of-range scores and failed calls all
// become StatusJudgeFailed verdicts with a fixed reason.
package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/chefai-go/internal/llm"
	"github.com/54b3r/chefai-go/internal/prompt"
)

// noReference is substituted when no reference answer is supplied.
const noReference = "N/A"

// Config tunes a Judge.
type Config struct {
	// Temperature is the sampling temperature for judge calls.
	Temperature float32
	// Logger receives a warning for every failed verdict. Nil means slog.Default().
	Logger *slog.Logger
}

// Judge evaluates (question, answer) pairs against the scoring rubric.
type Judge struct {
	gen         llm.Generator
	templates   *prompt.Templates
	temperature float32
	log         *slog.Logger
}

// New returns a Judge that renders the prompt.Judge template and sends it to gen.
func New(gen llm.Generator, templates *prompt.Templates, cfg Config) (*Judge, error) {
	if gen == nil {
		return nil, fmt.Errorf("judge: generator must not be nil")
	}
	if templates == nil {
		return nil, fmt.Errorf("judge: templates must not be nil")
	}
	if _, ok := templates.Text(prompt.Judge); !ok {
		return nil, fmt.Errorf("judge: template set has no %q template", prompt.Judge)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Judge{gen: gen, templates: templates, temperature: cfg.Temperature, log: log}, nil
}

// Evaluate scores answer as a response to question. reference is an
// optional ideal answer; empty means none.
func (j *Judge) Evaluate(ctx context.Context, question, answer, reference string) Verdict {
	if reference == "" {
		reference = noReference
	}

	p, err := j.templates.Render(prompt.Judge, map[string]any{
		"question":  question,
		"answer":    answer,
		"reference": reference,
	})
	if err != nil {
		return j.failed(CallFailed(err))
	}

	raw, err := j.gen.Generate(ctx, p, llm.WithTemperature(j.temperature), llm.WithJSON())
	if err != nil {
		return j.failed(CallFailed(err))
	}

	v := Parse(raw)
	if !v.OK() {
		j.log.Debug("judge: raw output rejected", slog.String("raw", raw))
		return j.failed(v)
	}
	return v
}

func (j *Judge) failed(v Verdict) Verdict {
	j.log.Warn("judge: evaluation failed", slog.String("reason", v.Reason))
	return v
}
