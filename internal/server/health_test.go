package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

// TestHandleHealth_OK verifies that a reachable store yields
// {status:"ok", collection, count} with HTTP 200.
func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, &fakeCounter{count: 42})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d — body: %s", w.Code, w.Body.String())
	}

	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status: expected ok, got %q", body.Status)
	}
	if body.Collection != "salon_kb" {
		t.Errorf("collection: expected salon_kb, got %q", body.Collection)
	}
	if body.Count == nil || *body.Count != 42 {
		t.Errorf("count: expected 42, got %v", body.Count)
	}
}

// TestHandleHealth_StoreFailureDegrades verifies that a storage fault is
// caught and reported as {status:"error", message} — still at HTTP 200,
// never as an unhandled fault.
func TestHandleHealth_StoreFailureDegrades(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, &fakeCounter{err: errors.New("qdrant unreachable")})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health must stay 200 on storage failure, got %d", w.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "error" {
		t.Errorf("status: expected error, got %q", body.Status)
	}
	if body.Message == "" {
		t.Errorf("expected a message describing the failure")
	}
	if body.Count != nil {
		t.Errorf("count must be omitted on error, got %v", *body.Count)
	}
}

// ---------------------------------------------------------------------------
// GET /ready
// ---------------------------------------------------------------------------

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	// name is returned by Name().
	name string
	// err is returned by Ping(); nil means healthy.
	err error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// TestHandleReady_NoPingers verifies that /ready returns 200 with ready:true
// and an empty checks array when no pingers are registered.
func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready {
		t.Errorf("expected ready:true with no pingers")
	}
	if len(resp.Checks) != 0 {
		t.Errorf("expected 0 checks, got %d", len(resp.Checks))
	}
}

// TestHandleReady_AllHealthy verifies that /ready returns 200 with
// ready:true when all pingers succeed.
func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	s.pingers = []Pinger{
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "ollama"},
	}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready {
		t.Errorf("expected ready:true")
	}
	if len(resp.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(resp.Checks))
	}
}

// TestHandleReady_DependencyDown verifies that a failing pinger flips the
// response to 503 with the failing check reported.
func TestHandleReady_DependencyDown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil)
	s.pingers = []Pinger{
		&fakePinger{name: "qdrant", err: errors.New("connection refused")},
		&fakePinger{name: "ollama"},
	}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Errorf("expected ready:false")
	}
	if resp.Checks[0].OK || resp.Checks[0].Error == "" {
		t.Errorf("failing check must carry its error: %+v", resp.Checks[0])
	}
	if !resp.Checks[1].OK {
		t.Errorf("healthy check must still report ok")
	}
}

// TestMultiPinger_FirstErrorWins verifies the aggregate pinger surfaces the
// first failure with its dependency name.
func TestMultiPinger_FirstErrorWins(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("down")
	m := NewMultiPinger(
		&fakePinger{name: "a"},
		&fakePinger{name: "b", err: wantErr},
		&fakePinger{name: "c", err: errors.New("also down")},
	)

	err := m.Ping(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("want first failure, got %v", err)
	}
}
