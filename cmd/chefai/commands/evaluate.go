package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/chefai-go/internal/evaluation"
	"github.com/54b3r/chefai-go/internal/logging"
	"github.com/54b3r/chefai-go/internal/prompt"
)

// NewEvaluateCmd constructs the `chefai evaluate` command, which answers a
// fixed question set, grades every answer and writes the results file.
func NewEvaluateCmd() *cobra.Command {
	var questionsFile string
	var out string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Answer and grade the evaluation question set",
		Long: `Run every evaluation question through retrieval, generation and the
judge, one at a time, printing the score as it goes. The ordered results are
written as an indented JSON array once the run finishes.

A retrieval failure falls back to answering without recipes; a generation
failure is recorded with status "generation_failed" and the run continues.

Without --questions the built-in 30 question set is used. A questions file is
a YAML list of strings or of {question, reference} objects.

Examples:
  chefai evaluate
  chefai evaluate --questions ./questions.yaml --out ./results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			questions := evaluation.DefaultQuestions
			if questionsFile != "" {
				q, err := evaluation.LoadQuestions(questionsFile)
				if err != nil {
					return withPrefix("evaluate", err)
				}
				questions = q
			}
			if out == "" {
				out = getEnvOrDefault("CHEFAI_RESULTS_FILE", evaluation.DefaultResultsFile)
			}

			a, err := buildApp(ctx, log, prompt.Answer)
			if err != nil {
				return withPrefix("evaluate", err)
			}
			defer a.Close()

			runner, err := evaluation.NewRunner(evaluation.Config{
				Answerer:  a.assistant,
				Evaluator: a.judge,
				Progress:  cmd.OutOrStdout(),
				Logger:    log,
			})
			if err != nil {
				return withPrefix("evaluate", err)
			}

			records, runErr := runner.Run(ctx, questions)
			if err := evaluation.WriteResults(out, records); err != nil {
				return withPrefix("evaluate", err)
			}

			sum := evaluation.Summarize(records)
			fmt.Fprintf(cmd.OutOrStdout(), "\nEvaluation finished. Results saved to %s\n", out)
			fmt.Fprintf(cmd.OutOrStdout(), "Scored %d/%d, mean %.2f / 10, judge failures %d, generation failures %d\n",
				sum.Scored, sum.Total, sum.Mean, sum.JudgeFailed, sum.GenerationFailed)
			log.Info("evaluation finished",
				slog.String("results", out),
				slog.Int("total", sum.Total),
				slog.Int("scored", sum.Scored),
				slog.Float64("mean", sum.Mean),
			)

			if runErr != nil {
				return fmt.Errorf("evaluate: interrupted after %d of %d questions: %w", len(records), len(questions), runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&questionsFile, "questions", "q", "", "YAML question file (default: built-in 30 questions)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Result file (default: $CHEFAI_RESULTS_FILE or judge_results.json)")

	return cmd
}
