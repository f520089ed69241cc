package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/salonlabs/kbrag/internal/embedder"
	"github.com/salonlabs/kbrag/internal/manifest"
	"github.com/salonlabs/kbrag/internal/rag"
)

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is
// not set.
const defaultCollection = "salon_kb"

// openQdrantStore connects to Qdrant using the QDRANT_* environment variables
// and ensures the target collection exists with the embedding backend's
// vector size.
func openQdrantStore(ctx context.Context) (*rag.QdrantStore, error) {
	backend := embedder.Backend()
	vectorSize := uint64(embedder.DefaultDimensions(backend)) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return store, nil
}

// openManifest opens the manifest store. KBRAG_MANIFEST_DB overrides the
// default path (~/.kbrag/manifest.db); setting it to "disabled" turns the
// manifest off, in which case both return values are nil.
func openManifest() (*manifest.Store, error) {
	path := os.Getenv("KBRAG_MANIFEST_DB")
	if path == "disabled" {
		return nil, nil
	}
	if path == "" {
		var err error
		path, err = manifest.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return manifest.Open(path)
}

// currentSchema resolves the embedding schema the current environment would
// produce: backend model name, vector size, and the fixed cosine metric.
func currentSchema(collection string) manifest.CollectionSchema {
	backend := embedder.Backend()
	return manifest.CollectionSchema{
		Collection:     collection,
		EmbeddingModel: embedder.ModelName(backend),
		Dimensions:     embedder.DefaultDimensions(backend),
		Metric:         "cosine",
	}
}

// getEnvOrDefault returns the env var value or a fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or a fallback when unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat returns the env var parsed as float64, or a fallback when unset
// or unparseable.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
