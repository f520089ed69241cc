// Package rag defines the interfaces for the retrieval pipeline: vector
// storage, nearest-neighbour retrieval, and embedding. Concrete
// implementations (Qdrant, the HTTP embedders) satisfy these interfaces so
// the server and ingestion layers never depend on a specific backend.
package rag

import (
	"context"
)

// Item is a unit of stored or retrieved knowledge — one flattened
// knowledge-base row.
type Item struct {
	// ID is the deterministic human-readable identifier for this row,
	// formed as "<dataset>_<rowIndex>".
	ID string

	// Text is the flattened text representation of the source row.
	Text string

	// Source is the dataset name the row was ingested from.
	Source string

	// Row is the positional index of the row within its source file.
	Row int

	// Metadata holds any additional key-value pairs carried alongside the
	// row. Source and Row are always mirrored here on retrieval.
	Metadata map[string]string

	// Distance is the dissimilarity between this item and the query vector,
	// assigned during retrieval. Smaller means more similar. Zero for items
	// that have not been retrieved.
	Distance float32
}

// VectorStore is the interface for persisting and searching row embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of items with their pre-computed
	// embeddings. The embeddings slice must be parallel to items —
	// embeddings[i] is the vector for items[i]. Re-upserting an existing ID
	// overwrites the stored item in place.
	Upsert(ctx context.Context, items []Item, embeddings [][]float32) error

	// Search returns the topK stored items nearest to the query embedding,
	// ordered by ascending distance. Fewer than topK items are returned when
	// the collection holds fewer; an empty collection yields an empty slice.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Item, error)

	// Count returns the number of items currently stored in the collection.
	Count(ctx context.Context) (uint64, error)

	// Delete removes items by their human-readable IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface the server uses to fetch the nearest
// stored rows for a query string. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k nearest items for the given query text,
	// ordered by ascending distance.
	Retrieve(ctx context.Context, query string, topK int) ([]Item, error)
}
