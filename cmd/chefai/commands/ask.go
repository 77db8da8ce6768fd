package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/logging"
	"github.com/54b3r/chefai-go/internal/prompt"
)

// errEmptyQuestion is reported when the input line is blank.
var errEmptyQuestion = errors.New("Please enter a question or request first.") //nolint:staticcheck // user-facing sentence

// NewAskCmd constructs the `chefai ask` command, which reads one question
// from stdin, answers it from the knowledge base and prints the answer.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask",
		Short: "Answer one cooking question read from stdin",
		Long: `Read a single line from stdin, retrieve the three closest recipes,
and print the model's answer. The answer is not graded; use 'chefai evaluate'
or the web UI for scores.

Retrieval and generation failures are reported and the command exits non-zero.

Examples:
  chefai ask
  echo "Give me a vegan lasagna recipe" | chefai ask`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			// Configuration and model access are checked before the
			// question is read.
			a, err := buildApp(ctx, log, prompt.Answer)
			if err != nil {
				return withPrefix("ask", err)
			}
			defer a.Close()

			if stdinIsTerminal() {
				fmt.Fprint(cmd.ErrOrStderr(), "\nEnter your question: ")
			}
			return withPrefix("ask", answerOne(ctx, a.assistant, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
}

// answerer is the slice of assistant.Pipeline the ask command uses.
type answerer interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
}

// answerOne reads a question from in and prints the answer to out.
func answerOne(ctx context.Context, a answerer, in io.Reader, out, errOut io.Writer) error {
	question, err := readLine(in)
	if err != nil {
		return err
	}
	ans, err := a.Ask(ctx, question)
	if err != nil {
		fmt.Fprintln(errOut, "Error generating response:", err)
		return err
	}
	fmt.Fprintln(out, "\nResponse:", ans.Text)
	return nil
}

// readLine reads one line from r and trims it. A blank line is an error.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read question: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errEmptyQuestion
	}
	return line, nil
}

// stdinIsTerminal reports whether stdin is an interactive terminal.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
