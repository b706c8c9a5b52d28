package handlers

import (
	"net/http"

	"clip-library/internal/library"

	"github.com/gorilla/mux"
)

// CollectionRequest creates or edits a collection.
type CollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CollectionClipsRequest names clips to add to or remove from a collection.
type CollectionClipsRequest struct {
	IDs []string `json:"ids"`
}

// ListCollections returns all collections with their clip counts.
func (h *Handlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := h.db.ListCollections(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list collections", http.StatusInternalServerError)
		return
	}
	if cols == nil {
		cols = []library.Collection{}
	}
	writeJSON(w, cols)
}

// CreateCollection creates an empty collection.
func (h *Handlers) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	col, err := h.db.CreateCollection(r.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		writeJSONError(w, "failed to create collection", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSON(w, col)
}

// UpdateCollection renames a collection or changes its description.
func (h *Handlers) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req CollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.RenameCollection(r.Context(), id, req.Name, req.Description); err != nil {
		writeJSONError(w, "failed to update collection", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

// DeleteCollection removes a collection; its clips are untouched.
func (h *Handlers) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.db.DeleteCollection(r.Context(), id); err != nil {
		writeJSONError(w, "failed to delete collection", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

// CollectionClips returns the member clip ids of a collection in
// insertion order.
func (h *Handlers) CollectionClips(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ids, err := h.db.CollectionClipIDs(r.Context(), id)
	if err != nil {
		writeJSONError(w, "failed to list collection clips", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, map[string][]string{"clipIds": ids})
}

// AddCollectionClips adds clips to a collection. Already-present clips
// are skipped silently.
func (h *Handlers) AddCollectionClips(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req CollectionClipsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeJSONError(w, "ids are required", http.StatusBadRequest)
		return
	}

	if err := h.db.AddClipsToCollection(r.Context(), id, req.IDs); err != nil {
		writeJSONError(w, "failed to add clips", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

// RemoveCollectionClips removes clips from a collection.
func (h *Handlers) RemoveCollectionClips(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req CollectionClipsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeJSONError(w, "ids are required", http.StatusBadRequest)
		return
	}

	if err := h.db.RemoveClipsFromCollection(r.Context(), id, req.IDs); err != nil {
		writeJSONError(w, "failed to remove clips", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}
