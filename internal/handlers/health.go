package handlers

import (
	"net/http"
)

// Health reports overall service health plus a few gauges useful to a
// human checking on the process.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"clips":  len(h.store.Clips()),
	})
}

// Live is the liveness probe: the process answers, nothing more.
func (h *Handlers) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ok")
}

// Ready is the readiness probe: the database must answer a query.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.db.GetMeta(r.Context(), "schema_version"); err != nil {
		writeJSONError(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ok")
}
