package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/chefai-go/internal/logging"
	"github.com/54b3r/chefai-go/internal/prompt"
	"github.com/54b3r/chefai-go/internal/server"
)

// NewServeCmd constructs the `chefai serve` command, which starts the HTTP
// server and serves the web UI.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chefai HTTP server and web UI",
		Long: `Start the chefai HTTP server.

The UI at / takes one question and shows the answer together with the judge's
score and reason. The same flow is available as POST /api/ask. Liveness is at
/api/health, dependency readiness at /api/ready and Prometheus metrics at
/metrics.

Set CHEFAI_API_KEY to require "Authorization: Bearer <key>" on /api/ask.

Examples:
  chefai serve
  chefai serve --host 0.0.0.0 --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			a, err := buildApp(ctx, log, prompt.Chat)
			if err != nil {
				return withPrefix("serve", err)
			}
			defer a.Close()

			srv, err := server.New(server.Deps{
				Asker:     a.assistant,
				Evaluator: a.judge,
			}, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					server.NewPinger(string(a.models.Backend()), a.models.Ping),
					server.NewPinger(getEnvOrDefault("VECTOR_STORE", storeQdrant), a.store.Ping),
				},
				APIKey: os.Getenv("CHEFAI_API_KEY"),
			})
			if err != nil {
				return withPrefix("serve", err)
			}

			log.Info("serve starting", slog.String("host", host), slog.Int("port", port))
			return withPrefix("serve", srv.Start(ctx))
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
