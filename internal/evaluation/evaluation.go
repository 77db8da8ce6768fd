// Package evaluation runs the batch regression: every question goes through
// the assistant and the judge in order, and the ordered records are written
// to a JSON result file once the run completes.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/judge"
)

// StatusGenerationFailed marks a record whose answer could not be generated.
// Scored and judge-failed records use the judge.Status values.
const StatusGenerationFailed = "generation_failed"

// Record is one line of the result file.
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
	// Status is "scored", "judge_failed" or "generation_failed".
	Status string `json:"status"`
}

// Answerer produces an answer for a question. *assistant.Pipeline satisfies it.
type Answerer interface {
	AskWithFallback(ctx context.Context, question string) (*assistant.Answer, error)
}

// Evaluator scores an answer. *judge.Judge satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer, reference string) judge.Verdict
}

// Config wires a Runner.
type Config struct {
	Answerer  Answerer
	Evaluator Evaluator
	// Progress receives human-readable progress lines. Nil discards them.
	Progress io.Writer
	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
	// OnRecord, when set, is called after each record is produced.
	OnRecord func(Record)
}

// Runner executes a batch of questions sequentially.
type Runner struct {
	answerer  Answerer
	evaluator Evaluator
	progress  io.Writer
	log       *slog.Logger
	onRecord  func(Record)
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("evaluation: answerer must not be nil")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluation: evaluator must not be nil")
	}
	progress := cfg.Progress
	if progress == nil {
		progress = io.Discard
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		answerer:  cfg.Answerer,
		evaluator: cfg.Evaluator,
		progress:  progress,
		log:       log,
		onRecord:  cfg.OnRecord,
	}, nil
}

// Run answers and judges every question in order and returns one record
// per question. A failed generation yields a generation_failed record and
// the run continues. Run stops early only when ctx is cancelled, returning
// the records of the questions completed before cancellation together with
// ctx.Err(). A question in flight at cancellation gets no record.
func (r *Runner) Run(ctx context.Context, questions []Question) ([]Record, error) {
	records := make([]Record, 0, len(questions))
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("evaluation: run interrupted after %d of %d questions: %w", i, len(questions), err)
		}
		fmt.Fprintf(r.progress, "[%d/%d] %s\n", i+1, len(questions), q.Text)

		rec := r.runOne(ctx, q)
		if err := ctx.Err(); err != nil {
			// The in-flight question was cut short, not answered or judged.
			return records, fmt.Errorf("evaluation: run interrupted after %d of %d questions: %w", i, len(questions), err)
		}
		records = append(records, rec)
		if r.onRecord != nil {
			r.onRecord(rec)
		}

		switch rec.Status {
		case StatusGenerationFailed:
			fmt.Fprintf(r.progress, "  %s\n", rec.Reason)
		case string(judge.StatusJudgeFailed):
			fmt.Fprintf(r.progress, "  Judge failed: %s\n", rec.Reason)
		default:
			fmt.Fprintf(r.progress, "  Score: %d / 10\n", rec.Score)
		}
	}
	return records, nil
}

func (r *Runner) runOne(ctx context.Context, q Question) Record {
	ans, err := r.answerer.AskWithFallback(ctx, q.Text)
	if err != nil {
		r.log.Warn("evaluation: generation failed",
			slog.String("question", q.Text),
			slog.String("error", err.Error()),
		)
		return Record{
			Question: q.Text,
			Score:    0,
			Reason:   "Generation failed: " + err.Error(),
			Status:   StatusGenerationFailed,
		}
	}

	v := r.evaluator.Evaluate(ctx, q.Text, ans.Text, q.Reference)
	return Record{
		Question: q.Text,
		Answer:   ans.Text,
		Score:    v.Score,
		Reason:   v.Reason,
		Status:   string(v.Status),
	}
}

// Summary aggregates a run for display.
type Summary struct {
	Total            int
	Scored           int
	JudgeFailed      int
	GenerationFailed int
	// Mean is the average score over scored records only.
	Mean float64
}

// Summarize counts records by status. Failed records do not drag the mean
// down because their score 0 is not a grade.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	sum := 0
	for _, rec := range records {
		switch rec.Status {
		case string(judge.StatusScored):
			s.Scored++
			sum += rec.Score
		case string(judge.StatusJudgeFailed):
			s.JudgeFailed++
		case StatusGenerationFailed:
			s.GenerationFailed++
		}
	}
	if s.Scored > 0 {
		s.Mean = float64(sum) / float64(s.Scored)
	}
	return s
}
