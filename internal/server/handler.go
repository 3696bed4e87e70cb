// Package server exposes a built index over HTTP: ranked search through the
// memoising query handlers, index statistics, health probes and metrics.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/output"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/logger"
)

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Exact   bool            `json:"exact"`
	Total   int             `json:"total"`
	Results []output.Result `json:"results"`
}

// StatsResponse is the body of the index statistics endpoint.
type StatsResponse struct {
	Words     int `json:"words"`
	Locations int `json:"locations"`
	Queries   int `json:"queries"`
}

// Handlers holds one query handler per search mode, since a handler stores
// one result per normalised query regardless of mode.
type Handlers struct {
	Exact   query.Handler
	Partial query.Handler
}

func (h Handlers) forMode(exact bool) query.Handler {
	if exact {
		return h.Exact
	}
	return h.Partial
}

type Handler struct {
	index     index.Index
	queries   Handlers
	collector *events.Collector
	logger    *slog.Logger
}

// NewHandler returns a Handler. collector may be nil.
func NewHandler(idx index.Index, queries Handlers, collector *events.Collector) *Handler {
	return &Handler{
		index:     idx,
		queries:   queries,
		collector: collector,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	line := r.URL.Query().Get("q")
	if line == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	exact := false
	if v := r.URL.Query().Get("exact"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "exact must be true or false")
			return
		}
		exact = parsed
	}

	key, _ := query.Key(line)
	resp := SearchResponse{Query: key, Exact: exact, Results: []output.Result{}}
	if key != "" {
		handler := h.queries.forMode(exact)
		handler.ParseQueryLine(line, exact)
		if scores, ok := handler.QueryResults(line); ok {
			resp.Results = output.Results(scores)
		}
	}
	resp.Total = len(resp.Results)

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", key,
		"exact", exact,
		"results", resp.Total,
		"latency_ms", latencyMs,
	)
	h.collector.Track(events.QueryEvent{
		Type:      events.EventQueryAnswered,
		RunID:     h.collector.RunID(),
		Query:     key,
		Exact:     exact,
		Results:   resp.Total,
		LatencyMs: latencyMs,
		Timestamp: time.Now().UTC(),
	})

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatsResponse{
		Words:     h.index.NumWords(),
		Locations: h.index.NumCounts(),
		Queries:   len(h.queries.Exact.QueryLines()) + len(h.queries.Partial.QueryLines()),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
