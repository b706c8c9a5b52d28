package handlers

import (
	"net/http"
	"time"

	"clip-library/internal/library"
	"clip-library/internal/metrics"
)

// SemanticSearch ranks the library against a free-text query using the
// embedding index. Returns 503 when no embedding service is configured.
func (h *Handlers) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	if h.ranker == nil {
		writeJSONError(w, "semantic search is not configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSONError(w, "q is required", http.StatusBadRequest)
		return
	}
	limit := parseIntParam(r.URL.Query().Get("limit"), 200)

	start := time.Now()
	results, err := h.ranker.Search(r.Context(), query, limit)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchDispatchesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}
	metrics.SearchDispatchesTotal.WithLabelValues("success").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(results)))

	if results == nil {
		results = []library.SearchResult{}
	}
	writeJSON(w, results)
}

// SearchQueryRequest carries one edit of the session query.
type SearchQueryRequest struct {
	Q string `json:"q"`
}

// SearchSessionResponse is the current state of the debounced search
// session.
type SearchSessionResponse struct {
	Active  bool                   `json:"active"`
	Results []library.SearchResult `json:"results"`
}

// UpdateSearchQuery feeds a query edit into the debounced search
// session. Rapid edits coalesce: only the last query within the
// debounce window is dispatched to the ranker. A blank query clears the
// session immediately. Subscribers learn about fresh results via the
// search-results event and re-fetch.
func (h *Handlers) UpdateSearchQuery(w http.ResponseWriter, r *http.Request) {
	if h.searchClient == nil {
		writeJSONError(w, "semantic search is not configured", http.StatusServiceUnavailable)
		return
	}
	var req SearchQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.searchClient.SetQuery(req.Q)
	writeJSONStatus(w, "accepted")
}

// GetSearchResults returns the session's current ranked results. While
// the session is active, the same results scope the clip list.
func (h *Handlers) GetSearchResults(w http.ResponseWriter, _ *http.Request) {
	if h.searchClient == nil {
		writeJSONError(w, "semantic search is not configured", http.StatusServiceUnavailable)
		return
	}
	results, active := h.searchClient.Results()
	if results == nil {
		results = []library.SearchResult{}
	}
	writeJSON(w, SearchSessionResponse{Active: active, Results: results})
}
