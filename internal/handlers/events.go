package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"clip-library/internal/events"
	"clip-library/internal/logging"
)

// Events streams library events to the client as server-sent events.
// Subscribers that stop draining lose events rather than blocking the
// publishers, so clients must treat every event as a refresh hint.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				logging.Warn("failed to encode event %s: %v", ev.Name, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
			flusher.Flush()
		}
	}
}

// reloadAndNotify refreshes the snapshot from the database after a
// record mutation and broadcasts the change. Failures are logged; the
// next scan reconciles.
func (h *Handlers) reloadAndNotify(r *http.Request) {
	if err := h.scanner.Reload(r.Context()); err != nil {
		logging.Warn("snapshot reload failed: %v", err)
	}
}

// publishLibraryChanged broadcasts a library change without a reload,
// for paths that already updated the snapshot in place.
func (h *Handlers) publishLibraryChanged() {
	h.bus.Publish(events.LibraryChanged, nil)
}
