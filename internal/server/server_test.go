package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/salonlabs/kbrag/internal/rag"
)

// fakeRetriever returns canned items or a canned error.
type fakeRetriever struct {
	items    []rag.Item
	err      error
	gotQuery string
	gotTopK  int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, topK int) ([]rag.Item, error) {
	f.gotQuery = query
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.items) {
		return f.items[:topK], nil
	}
	return f.items, nil
}

// fakeCounter is a test double for the health endpoint's store view.
type fakeCounter struct {
	count uint64
	err   error
}

func (f *fakeCounter) Count(context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

// newTestServer builds a *Server with quiet logging and a hermetic metrics
// registry. Callers mutate the fakes to shape behaviour.
func newTestServer(t *testing.T, retriever *fakeRetriever, store *fakeCounter) *Server {
	t.Helper()
	if retriever == nil {
		retriever = &fakeRetriever{}
	}
	if store == nil {
		store = &fakeCounter{}
	}
	s, err := New(retriever, store, &Config{
		Collection: "salon_kb",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:   prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}
