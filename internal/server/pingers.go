package server

import (
	"context"
	"fmt"

	"github.com/salonlabs/kbrag/internal/rag"
)

// pingable is satisfied by any dependency exposing its own reachability
// check, e.g. *rag.QdrantStore.
type pingable interface {
	Ping(ctx context.Context) error
}

// StorePinger probes the vector store using its native health check.
// It satisfies the Pinger interface and is used by GET /ready.
type StorePinger struct {
	// store is the dependency to probe.
	store pingable
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(store pingable) *StorePinger {
	return &StorePinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "qdrant" }

// Ping delegates to the store's own health check.
func (p *StorePinger) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// EmbedderPinger probes the embedding backend by embedding a single short
// text. For hosted backends this consumes a minimal amount of quota, so the
// probe only runs inside /ready's bounded timeout, never per request.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder and
// backend name.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word probe text and verifies a vector comes back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed probe returned an empty vector")
	}
	return nil
}
