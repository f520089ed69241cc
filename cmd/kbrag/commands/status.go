package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salonlabs/kbrag/internal/manifest"
)

// NewStatusCmd constructs the `kbrag status` subcommand. It prints the
// embedding schema recorded for the collection and the most recent ingestion
// runs from the manifest, without touching Qdrant or the embedder.
func NewStatusCmd() *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded ingestion schema and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)

			mf, err := openManifest()
			if err != nil {
				return fmt.Errorf("status: failed to open manifest: %w", err)
			}
			if mf == nil {
				return fmt.Errorf("status: manifest is disabled (KBRAG_MANIFEST_DB=disabled)")
			}
			defer mf.Close()

			schema, err := mf.Schema(ctx, collection)
			switch {
			case errors.Is(err, manifest.ErrNoSchema):
				fmt.Printf("collection %s: never ingested\n", collection)
			case err != nil:
				return fmt.Errorf("status: %w", err)
			default:
				fmt.Printf("collection %s\n", schema.Collection)
				fmt.Printf("  model:      %s\n", schema.EmbeddingModel)
				fmt.Printf("  dimensions: %d\n", schema.Dimensions)
				fmt.Printf("  metric:     %s\n", schema.Metric)
				fmt.Printf("  updated:    %s\n", schema.UpdatedAt.Format("2006-01-02 15:04:05"))
			}

			recent, err := mf.RecentRuns(ctx, runs)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if len(recent) == 0 {
				fmt.Println("no ingestion runs recorded")
				return nil
			}

			fmt.Println("recent runs:")
			for _, r := range recent {
				fmt.Printf("  %s  %-8s %5d rows  %s (%s)\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.Rows, r.Dataset, r.Path)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&runs, "runs", "n", 10, "Number of recent runs to show")

	return cmd
}
