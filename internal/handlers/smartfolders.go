package handlers

import (
	"net/http"

	"clip-library/internal/library"

	"github.com/gorilla/mux"
)

// SmartFolderRequest creates or replaces a smart folder. Rules holds the
// serialized rule sequence; it is stored opaquely and evaluated lazily,
// so a malformed rule set saves fine and simply matches everything.
type SmartFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Rules string `json:"rules"`
}

// ListSmartFolders returns all smart folders.
func (h *Handlers) ListSmartFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.db.ListSmartFolders(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list smart folders", http.StatusInternalServerError)
		return
	}
	if folders == nil {
		folders = []library.SmartFolder{}
	}
	writeJSON(w, folders)
}

// CreateSmartFolder saves a new named rule set.
func (h *Handlers) CreateSmartFolder(w http.ResponseWriter, r *http.Request) {
	var req SmartFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	folder, err := h.db.CreateSmartFolder(r.Context(), req.Name, req.Color, req.Rules)
	if err != nil {
		writeJSONError(w, "failed to create smart folder", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSON(w, folder)
}

// UpdateSmartFolder replaces a smart folder's name, color and rules.
func (h *Handlers) UpdateSmartFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req SmartFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.UpdateSmartFolder(r.Context(), id, req.Name, req.Color, req.Rules); err != nil {
		writeJSONError(w, "failed to update smart folder", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}

// DeleteSmartFolder removes a smart folder.
func (h *Handlers) DeleteSmartFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.db.DeleteSmartFolder(r.Context(), id); err != nil {
		writeJSONError(w, "failed to delete smart folder", http.StatusInternalServerError)
		return
	}

	h.reloadAndNotify(r)
	writeJSONStatus(w, "ok")
}
