package server

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/salonlabs/kbrag/internal/logging"
)

// handleRetrieve handles GET /rag/retrieve?q=<string>&k=<int>.
//
// The query text is embedded with the same model configuration used at
// ingestion time and the store is asked for the k nearest rows. Results keep
// the store's ascending-distance order — no re-ranking happens here. Fewer
// than k stored rows simply yields fewer results; an empty collection yields
// an empty list, not an error.
//
// Unlike /health, embedding and storage faults are NOT caught here: they
// surface as a 500 so callers see retrieval degradation rather than silently
// empty answers.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	q := r.URL.Query().Get("q")
	if q == "" {
		s.metrics.retrieveRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required and must be non-empty"})
		return
	}

	k := s.cfg.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.metrics.retrieveRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter k must be a positive integer"})
			return
		}
		k = parsed
	}

	items, err := s.retriever.Retrieve(r.Context(), q, k)
	if err != nil {
		log.Error("retrieve failed",
			slog.String("query", q),
			slog.Int("k", k),
			slog.Any("error", err),
		)
		s.metrics.retrieveRequestsTotal.WithLabelValues(outcomeError).Inc()
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	results := make([]retrieveResult, 0, len(items))
	for _, item := range items {
		res := retrieveResult{
			Text:     item.Text,
			Distance: float64(item.Distance),
			Metadata: map[string]any{},
		}
		if item.Source != "" {
			src := item.Source
			res.Source = &src
			row := item.Row
			res.Row = &row
			res.Metadata["source"] = item.Source
			res.Metadata["row"] = item.Row
		}
		for mk, mv := range item.Metadata {
			res.Metadata[mk] = mv
		}
		results = append(results, res)
	}

	elapsed := roundMillis(time.Since(start))
	s.metrics.retrieveRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.retrieveDurationSeconds.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, retrieveResponse{
		Query:     q,
		K:         k,
		LatencyMS: elapsed,
		Results:   results,
	})
}

// roundMillis converts a duration to milliseconds rounded to two decimals.
func roundMillis(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*100) / 100
}
