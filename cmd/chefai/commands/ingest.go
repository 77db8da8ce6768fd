package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/chefai-go/internal/embedder"
	"github.com/54b3r/chefai-go/internal/ingestion"
	"github.com/54b3r/chefai-go/internal/logging"
)

// NewIngestCmd constructs the `chefai ingest` command, which embeds every
// recipe in the knowledge base and upserts it into the vector index.
func NewIngestCmd() *cobra.Command {
	var kb string
	var watch bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the recipe knowledge base into the vector index",
		Long: `Load the recipe knowledge base, create the vector index if it does not
exist (384 dimensions, cosine), and upsert one embedding per recipe keyed by
its id. Re-running overwrites existing entries.

The knowledge base is a JSON array of {id, title, ingredients, instructions}
objects, read from a file or an http(s) URL.

Environment:
  CHEFAI_KNOWLEDGE_BASE  knowledge base path or URL (default: knowledgebase.json)
  VECTOR_STORE           qdrant or sqlite (default: qdrant)
  VECTOR_INDEX           index name (default: cookbook)
  EMBEDDING_PROVIDER     ollama, openai, azure, gemini (default: ollama)

Examples:
  chefai ingest
  chefai ingest --kb ./recipes.json
  VECTOR_STORE=sqlite chefai ingest --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			src := knowledgeBase(kb)
			if watch && ingestion.IsRemote(src) {
				return fmt.Errorf("ingest: --watch needs a local file, got %s", src)
			}

			embCfg, err := embedderConfig(nil)
			if err != nil {
				return withPrefix("ingest", err)
			}
			storeCfg, err := storeSettingsFromEnv()
			if err != nil {
				return withPrefix("ingest", err)
			}

			embCfg.WarnIfChatModel(log)
			emb, err := embedder.New(ctx, embCfg)
			if err != nil {
				return withPrefix("ingest", err)
			}
			log.Info("embedder initialised",
				slog.String("provider", embCfg.Provider),
				slog.String("model", embCfg.Model),
				slog.Int("dimensions", embCfg.Dimensions),
			)

			vs, err := openStore(storeCfg, log)
			if err != nil {
				return withPrefix("ingest", err)
			}
			defer vs.Close()

			pipeline, err := ingestion.NewPipeline(emb, vs, &ingestion.Config{Dimensions: embCfg.Dimensions})
			if err != nil {
				return withPrefix("ingest", err)
			}

			out := cmd.OutOrStdout()
			run := func(ctx context.Context) error {
				stats, err := pipeline.IngestSource(ctx, src, func(msg string) {
					fmt.Fprintln(out, msg)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Knowledge base has been inserted/updated in index %q (%d recipes).\n", stats.Index, stats.Upserted)
				log.Info("ingestion complete",
					slog.String("index", stats.Index),
					slog.Bool("created", stats.Created),
					slog.Int("upserted", stats.Upserted),
				)
				return nil
			}

			if err := run(ctx); err != nil {
				return withPrefix("ingest", err)
			}
			if !watch {
				return nil
			}
			return withPrefix("ingest", ingestion.Watch(ctx, src, run, log))
		},
	}

	cmd.Flags().StringVar(&kb, "kb", "", "Knowledge base file or URL (default: $CHEFAI_KNOWLEDGE_BASE or knowledgebase.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-ingest whenever the knowledge base file changes")

	return cmd
}
