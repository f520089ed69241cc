// Command kbrag is the entry point for the salon knowledge-base RAG backend.
// It provides a CLI (via Cobra) for batch CSV ingestion and an HTTP query
// service that returns the nearest knowledge-base snippets for a question.
package main

import (
	"fmt"
	"os"

	"github.com/salonlabs/kbrag/cmd/kbrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
