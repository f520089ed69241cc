// Package commands defines all Cobra CLI commands for the kbrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/salonlabs/kbrag/internal/audit"
	"github.com/salonlabs/kbrag/internal/config"
	"github.com/salonlabs/kbrag/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbrag",
		Short: "kbrag — retrieval backend for the salon knowledge base",
		Long: `kbrag ingests salon knowledge-base CSV files into a Qdrant vector store
and serves an HTTP retrieval API over them.

Each CSV row is flattened into a text snippet, embedded, and indexed.
The query service embeds incoming questions and returns the k nearest
snippets ranked by cosine distance.

Embedding backend is selected via the EMBEDDING_PROVIDER environment
variable or a YAML config file (~/.kbrag/config.yaml).
See 'kbrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kbrag/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewServeCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return root
}
