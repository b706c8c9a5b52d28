package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"clip-library/internal/library"

	"github.com/gorilla/mux"
)

// TagRequest creates or edits a tag.
type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ListTags returns all tags with their clip counts.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list tags", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []library.Tag{}
	}
	writeJSON(w, tags)
}

// CreateTag creates a tag, or returns the existing one when the name is
// already taken (names dedupe case-insensitively).
func (h *Handlers) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	tag, err := h.db.GetOrCreateTag(r.Context(), req.Name)
	if err != nil {
		writeJSONError(w, "failed to create tag", http.StatusInternalServerError)
		return
	}
	if req.Color != "" {
		if err := h.db.SetTagColor(r.Context(), tag.ID, req.Color); err != nil {
			writeJSONError(w, "failed to set tag color", http.StatusInternalServerError)
			return
		}
		tag.Color = req.Color
	}

	h.reloadAndNotify(r)
	writeJSON(w, tag)
}

// UpdateTag renames a tag or changes its color.
func (h *Handlers) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" && req.Color == "" {
		writeJSONError(w, "name or color is required", http.StatusBadRequest)
		return
	}

	if req.Name != "" {
		if err := h.db.RenameTag(r.Context(), id, req.Name); err != nil {
			tagUpdateError(w, err)
			return
		}
	}
	if req.Color != "" {
		if err := h.db.SetTagColor(r.Context(), id, req.Color); err != nil {
			tagUpdateError(w, err)
			return
		}
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

// DeleteTag removes a tag and its clip associations.
func (h *Handlers) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.db.DeleteTag(r.Context(), id); err != nil {
		tagUpdateError(w, err)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

func tagUpdateError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "tag not found", http.StatusNotFound)
		return
	}
	writeJSONError(w, "failed to update tag", http.StatusInternalServerError)
}
