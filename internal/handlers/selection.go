package handlers

import (
	"net/http"
)

// SelectionState is the current selection snapshot.
type SelectionState struct {
	IDs     []string `json:"ids"`
	Focused string   `json:"focused"`
	Count   int      `json:"count"`
}

// SelectionRequest names ids for selection operations.
type SelectionRequest struct {
	ID  string   `json:"id"`
	IDs []string `json:"ids"`
}

func (h *Handlers) selectionState() SelectionState {
	ids := h.selection.IDs()
	if ids == nil {
		ids = []string{}
	}
	return SelectionState{
		IDs:     ids,
		Focused: h.selection.Focused(),
		Count:   h.selection.Len(),
	}
}

// GetSelection returns the current selection.
func (h *Handlers) GetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.selectionState())
}

// ToggleSelection toggles one clip in or out of the selection.
func (h *Handlers) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	selected := h.selection.Toggle(req.ID)
	state := h.selectionState()
	writeJSON(w, map[string]interface{}{
		"selected":  selected,
		"selection": state,
	})
}

// SelectAll replaces the selection with the given ids, typically the
// full derived list.
func (h *Handlers) SelectAll(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.selection.SelectAll(req.IDs)
	writeJSON(w, h.selectionState())
}

// ClearSelection empties the selection.
func (h *Handlers) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	h.selection.Clear()
	writeJSON(w, h.selectionState())
}
