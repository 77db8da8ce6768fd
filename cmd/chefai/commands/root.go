// Package commands defines all Cobra CLI commands for the chefai binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/chefai-go/internal/audit"
	"github.com/54b3r/chefai-go/internal/config"
	"github.com/54b3r/chefai-go/internal/logging"
)

// rootState is shared by every subcommand of one invocation.
type rootState struct {
	// configPath is the --config flag value.
	configPath string
	// envFile is the --env-file flag value.
	envFile string
	// loadedConfigPath is the YAML file actually applied, for the audit record.
	loadedConfigPath string
	log              *slog.Logger
	start            time.Time
}

// Execute builds the command tree, runs it and writes the audit end record.
func Execute(ctx context.Context) error {
	st := &rootState{}
	root := NewRootCmd(st)
	cmd, err := root.ExecuteContextC(ctx)
	if st.log != nil && cmd != nil {
		audit.LogCommandEnd(ctx, st.log, cmd.Name(), st.start, err)
	}
	return err
}

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd(st *rootState) *cobra.Command {
	root := &cobra.Command{
		Use:   "chefai",
		Short: "chefai: a recipe assistant grounded in your own cookbook",
		Long: `chefai answers cooking questions using a recipe knowledge base.

It embeds your question, retrieves the three closest recipes from a vector
store, and asks a language model for an answer grounded in them. A second
model call grades answers on a 1 to 10 scale.

Configuration comes from the environment, a .env file in the working
directory, or a YAML file (~/.chefai/config.yaml). Environment wins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			st.start = time.Now()

			if _, err := config.LoadDotenv(st.envFile); err != nil {
				return err
			}
			// The logger is built after .env so LOG_LEVEL can come from it.
			log := logging.New()
			path, err := config.Load(st.configPath, log)
			if err != nil {
				return err
			}
			// Rebuild in case the YAML file set LOG_LEVEL or LOG_FORMAT.
			st.log = logging.New()
			st.loadedConfigPath = path
			slog.SetDefault(st.log)

			cmd.SetContext(logging.WithLogger(cmd.Context(), st.log))
			audit.LogCommandStart(cmd.Context(), st.log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", "", "Path to YAML config file (default: ~/.chefai/config.yaml)")
	root.PersistentFlags().StringVar(&st.envFile, "env-file", ".env", "Path to a dotenv file; missing is fine")

	root.AddCommand(
		NewIngestCmd(),
		NewAskCmd(),
		NewEvaluateCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}

// withPrefix wraps err with the command name unless it is nil.
func withPrefix(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
