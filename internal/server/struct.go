package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/salonlabs/kbrag/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// Collection is the vector store collection name reported by GET /health.
	Collection string
	// DefaultK is the result count used when a retrieve request omits k.
	// Defaults to 3 if zero.
	DefaultK int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /rag/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a fresh
	// registry is created; tests inject their own to stay hermetic.
	Registry *prometheus.Registry
}

// counter is the narrow read interface GET /health uses against the vector
// store. *rag.QdrantStore satisfies it; tests inject a fake.
type counter interface {
	// Count returns the number of items stored in the collection.
	Count(ctx context.Context) (uint64, error)
}

// Server is the HTTP query service. It owns no business logic beyond shaping
// requests and responses: retrieval is delegated to the rag.Retriever and
// the health count to the vector store.
type Server struct {
	// retriever answers /rag/retrieve queries.
	retriever rag.Retriever
	// store is the narrow health-check view of the vector store.
	store counter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments registered by this server.
	metrics *serverMetrics
	// registry is the Prometheus registry backing GET /metrics.
	registry *prometheus.Registry
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// retrieveResult is one ranked match in the /rag/retrieve response.
type retrieveResult struct {
	// Text is the stored flattened row.
	Text string `json:"text"`
	// Distance is the dissimilarity to the query; smaller is more similar.
	Distance float64 `json:"distance"`
	// Source is the dataset the row came from, or null when absent.
	Source *string `json:"source"`
	// Row is the row's index within its source file, or null when absent.
	Row *int `json:"row"`
	// Metadata is the full raw metadata mapping stored with the row.
	Metadata map[string]any `json:"metadata"`
}

// retrieveResponse is the JSON body for GET /rag/retrieve.
type retrieveResponse struct {
	// Query echoes the q parameter.
	Query string `json:"query"`
	// K echoes the requested result count.
	K int `json:"k"`
	// LatencyMS is the wall-clock handling time in milliseconds, rounded to
	// two decimal places.
	LatencyMS float64 `json:"latency_ms"`
	// Results is the ranked match list, nearest first.
	Results []retrieveResult `json:"results"`
}

// healthResponse is the JSON body for GET /health.
type healthResponse struct {
	// Status is "ok" or "error".
	Status string `json:"status"`
	// Collection is the collection name probed. Omitted on error.
	Collection string `json:"collection,omitempty"`
	// Count is the number of stored items. Omitted on error.
	Count *uint64 `json:"count,omitempty"`
	// Message describes the failure when Status is "error".
	Message string `json:"message,omitempty"`
}

// errorResponse is the JSON body for request-validation and service errors.
type errorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}
