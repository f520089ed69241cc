package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newOllamaTestServer returns an httptest server that speaks just enough of
// the Ollama /api/embed protocol for the embedder under test.
func newOllamaTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func Test_OllamaEmbedder_BatchRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path: want /api/embed, got %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model: want nomic-embed-text, got %q", req.Model)
		}
		out := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			out.Embeddings[i] = []float32{float32(i), 1}
		}
		json.NewEncoder(w).Encode(out)
	})

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	got, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 embeddings, got %d", len(got))
	}
	if got[2][0] != 2 {
		t.Errorf("embeddings not parallel to input: got %v", got[2])
	}
}

func Test_OllamaEmbedder_BackendError(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	})

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})

	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("want error from backend failure")
	}
}

func Test_OllamaEmbedder_CountMismatchRejected(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
	})

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("want error when backend returns fewer embeddings than inputs")
	}
}
