package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salonlabs/kbrag/internal/config"
	"github.com/salonlabs/kbrag/internal/embedder"
	"github.com/salonlabs/kbrag/internal/ingest"
	"github.com/salonlabs/kbrag/internal/logging"
)

// NewIngestCmd constructs the `kbrag ingest` command, which embeds
// knowledge-base CSV files and upserts them into the vector store.
func NewIngestCmd() *cobra.Command {
	var sourceFlags []string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest knowledge-base CSV files into the vector store",
		Long: `Read CSV files with a header row, flatten each row into a text snippet,
embed the snippets, and upsert them into the Qdrant collection.

Point IDs are derived from the dataset name and row index, so re-running
ingestion for the same files updates rows in place instead of duplicating
them.

Sources come from repeatable --source flags ("path=dataset"; the dataset
defaults to the file name without extension) or, when no flags are given,
from the ingest.sources list of the YAML config file.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: salon_kb)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  kbrag ingest --source data/hours.csv --source data/services.csv
  kbrag ingest --source data/faq_export.csv=faq
  kbrag ingest --config kbrag.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			sources, err := resolveSources(sourceFlags)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(sources) == 0 {
				return fmt.Errorf("ingest: no sources given — pass --source or set ingest.sources in the config file")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			store, err := openQdrantStore(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()
			log.Info("qdrant store ready", slog.String("collection", store.Collection()))

			// Pin the embedding schema so `kbrag serve` can detect drift.
			mf, err := openManifest()
			if err != nil {
				return fmt.Errorf("ingest: failed to open manifest: %w", err)
			}

			cfg := &ingest.Config{
				BatchSize: batchSize,
				Logger:    log,
			}
			if mf != nil {
				defer mf.Close()
				if err := mf.SetSchema(ctx, currentSchema(store.Collection())); err != nil {
					return fmt.Errorf("ingest: failed to record schema: %w", err)
				}
				cfg.Recorder = mf
			} else {
				log.Info("manifest disabled — schema and run journal will not be recorded")
			}

			pipeline, err := ingest.NewPipeline(emb, store, cfg)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			summary, runErr := pipeline.Run(ctx, sources)

			log.Info("ingestion finished",
				slog.Int("rows", summary.Rows),
				slog.Int("ingested", summary.Ingested),
				slog.Int("skipped", summary.Skipped),
				slog.Int("failed", summary.Failed),
			)

			if runErr != nil {
				return fmt.Errorf("ingest: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&sourceFlags, "source", "s", nil, `CSV file to ingest as "path" or "path=dataset" (repeatable)`)
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", getEnvInt("KBRAG_BATCH_SIZE", 0), "Rows embedded and upserted per batch (default 64)")

	return cmd
}

// resolveSources turns --source flags into ingest sources, falling back to
// the YAML config's ingest.sources list when no flags were given.
func resolveSources(flags []string) ([]ingest.Source, error) {
	if len(flags) == 0 {
		specs, err := config.Sources(loadedConfigPath)
		if err != nil {
			return nil, err
		}
		sources := make([]ingest.Source, 0, len(specs))
		for _, s := range specs {
			if s.Path == "" {
				return nil, fmt.Errorf("config source missing path")
			}
			dataset := s.Dataset
			if dataset == "" {
				dataset = datasetFromPath(s.Path)
			}
			sources = append(sources, ingest.Source{Path: s.Path, Dataset: dataset})
		}
		return sources, nil
	}

	sources := make([]ingest.Source, 0, len(flags))
	for _, f := range flags {
		path, dataset, found := strings.Cut(f, "=")
		if path == "" {
			return nil, fmt.Errorf("invalid --source %q", f)
		}
		if !found || dataset == "" {
			dataset = datasetFromPath(path)
		}
		sources = append(sources, ingest.Source{Path: path, Dataset: dataset})
	}
	return sources, nil
}

// datasetFromPath derives a dataset name from a file path: the base name
// without its extension.
func datasetFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
