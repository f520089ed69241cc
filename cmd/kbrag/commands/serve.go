package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/salonlabs/kbrag/internal/embedder"
	"github.com/salonlabs/kbrag/internal/logging"
	"github.com/salonlabs/kbrag/internal/manifest"
	"github.com/salonlabs/kbrag/internal/rag"
	"github.com/salonlabs/kbrag/internal/server"
)

// NewServeCmd constructs the `kbrag serve` command, which starts the HTTP
// retrieval service.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kbrag HTTP retrieval service",
		Long: `Start the kbrag HTTP server on localhost.

The server exposes:
  GET /health        collection status and stored item count
  GET /ready         dependency readiness (Qdrant, embedder)
  GET /rag/retrieve  k nearest knowledge-base snippets for ?q=...
  GET /metrics       Prometheus metrics

At startup the embedding configuration is validated against the schema
recorded by the last ingestion run — a model or dimension mismatch aborts
the start rather than silently returning garbage rankings.

Examples:
  kbrag serve
  kbrag serve --port 9090
  EMBEDDING_PROVIDER=openai kbrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("embedding_provider", embedder.Backend()))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			store, err := openQdrantStore(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			// Fail fast when the serving embedder disagrees with the one the
			// collection was ingested with. A missing record only warns: the
			// collection may simply not have been ingested yet.
			if err := validateSchema(ctx, log, store.Collection()); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			retriever, err := rag.NewRetriever(emb, store, getEnvInt("KBRAG_DEFAULT_K", 3))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(retriever, store, &server.Config{
				Host:       host,
				Port:       port,
				Collection: store.Collection(),
				DefaultK:   getEnvInt("KBRAG_DEFAULT_K", 3),
				Logger:     log,
				Pingers: []server.Pinger{
					server.NewStorePinger(store),
					server.NewEmbedderPinger(emb, embedder.Backend()),
				},
				RateLimit: getEnvFloat("KBRAG_RATE_LIMIT", 0),
				RateBurst: getEnvInt("KBRAG_RATE_BURST", 0),
				APIKey:    os.Getenv("KBRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("KBRAG_PORT", 8000), "TCP port to listen on")

	return cmd
}

// validateSchema checks the manifest's recorded schema for the collection
// against the current embedding environment. ErrNoSchema is tolerated with a
// warning; any other mismatch is fatal.
func validateSchema(ctx context.Context, log *slog.Logger, collection string) error {
	mf, err := openManifest()
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	if mf == nil {
		log.Warn("manifest disabled — embedding schema cannot be validated",
			slog.String("collection", collection),
		)
		return nil
	}
	defer mf.Close()

	err = mf.Validate(ctx, currentSchema(collection))
	if errors.Is(err, manifest.ErrNoSchema) {
		log.Warn("no ingestion schema recorded for collection — run `kbrag ingest` first",
			slog.String("collection", collection),
		)
		return nil
	}
	return err
}
