package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clip-library/internal/library"
	"clip-library/internal/logging"
	"clip-library/internal/metrics"
	"clip-library/internal/mutate"
	"clip-library/internal/pipeline"

	"github.com/gorilla/mux"
)

// deriveInputs builds the pipeline inputs from the request's query
// parameters. Malformed values narrow nothing; the derivation is total.
func (h *Handlers) deriveInputs(r *http.Request) pipeline.Inputs {
	q := r.URL.Query()

	in := pipeline.Inputs{
		Clips:    h.store.Clips(),
		TagNames: h.store.TagNames(),
		Query:    q.Get("q"),
	}

	if col := q.Get("collection"); col != "" {
		in.CollectionID = col
		if col != pipeline.StarredCollectionID {
			ids, err := h.db.CollectionClipIDs(r.Context(), col)
			if err != nil {
				logging.Warn("loading collection %s members: %v", col, err)
			}
			in.CollectionClipIDs = ids
		}
	} else if sf := q.Get("smartFolder"); sf != "" {
		if folder, ok := h.store.SmartFolder(sf); ok {
			in.SmartFolderActive = true
			in.SmartFolderRules = folder.Rules
		}
	}

	if parseBoolParam(q.Get("semantic")) && h.ranker != nil && in.Query != "" {
		ranked, err := h.ranker.Search(r.Context(), in.Query, parseIntParam(q.Get("limit"), 200))
		if err != nil {
			logging.Warn("semantic search failed, falling back to text: %v", err)
		} else {
			in.SemanticMode = true
			in.Ranked = ranked
		}
	}

	// An active debounced search session scopes the list the same way
	// an explicit semantic query does.
	if !in.SemanticMode && h.searchClient != nil {
		if ranked, active := h.searchClient.Results(); active {
			in.SemanticMode = true
			in.Ranked = ranked
		}
	}

	if v := q.Get("dateFrom"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			in.Filter.DateFrom = &n
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			in.Filter.DateTo = &n
		}
	}
	if v := q.Get("tags"); v != "" {
		in.Filter.Tags = strings.Split(v, ",")
	}
	in.Filter.DirSource = q.Get("dirSource")
	if v := q.Get("starred"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			in.Filter.Starred = &b
		}
	}

	in.Sort = parseSort(q.Get("sortField"), q.Get("sortDir"))
	return in
}

func parseSort(field, dir string) library.SortConfig {
	cfg := library.DefaultSort
	switch library.SortField(field) {
	case library.SortByRecordedAt, library.SortByFilename,
		library.SortByFileSize, library.SortByDuration:
		cfg.Field = library.SortField(field)
	}
	switch library.SortDir(dir) {
	case library.SortAsc, library.SortDesc:
		cfg.Dir = library.SortDir(dir)
	}
	return cfg
}

func parseBoolParam(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func parseIntParam(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ListClips returns the derived, ordered clip list for the request's
// scope, search, filter and sort parameters.
func (h *Handlers) ListClips(w http.ResponseWriter, r *http.Request) {
	clips := pipeline.Derive(h.deriveInputs(r))
	if clips == nil {
		clips = []library.Clip{}
	}
	writeJSON(w, clips)
}

// GetClip returns a single clip by id.
func (h *Handlers) GetClip(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	clip, ok := h.store.Clip(id)
	if !ok {
		writeJSONError(w, "clip not found", http.StatusNotFound)
		return
	}
	writeJSON(w, clip)
}

// ClipUpdateRequest is a partial clip edit.
type ClipUpdateRequest struct {
	Description *string   `json:"description"`
	Starred     *bool     `json:"starred"`
	Tags        *[]string `json:"tags"`
}

// UpdateClip applies a partial edit to one clip through the mutation
// coordinator, so the snapshot reverts if the write fails.
func (h *Handlers) UpdateClip(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ClipUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Description == nil && req.Starred == nil && req.Tags == nil {
		writeJSONError(w, "no fields to update", http.StatusBadRequest)
		return
	}

	patch := library.ClipPatch{
		Description: req.Description,
		Starred:     req.Starred,
		Tags:        req.Tags,
	}
	kind := "description"
	if req.Starred != nil {
		kind = "star"
	}
	if req.Tags != nil {
		kind = "tags"
	}
	h.finishMutation(w, kind, h.coord.Apply(r.Context(), id, patch))
}

// StarRequest sets a clip's starred flag.
type StarRequest struct {
	Starred bool `json:"starred"`
}

// SetStarred toggles the star on one clip.
func (h *Handlers) SetStarred(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req StarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.finishMutation(w, "star", h.coord.SetStarred(r.Context(), id, req.Starred))
}

// BulkStarRequest stars or unstars a set of clips.
type BulkStarRequest struct {
	IDs     []string `json:"ids"`
	Starred bool     `json:"starred"`
}

// SetStarredBulk stars or unstars every listed clip, all or nothing.
func (h *Handlers) SetStarredBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkStarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeJSONError(w, "ids are required", http.StatusBadRequest)
		return
	}
	h.finishMutation(w, "bulk_star", h.coord.SetStarredBulk(r.Context(), req.IDs, req.Starred))
}

// BulkTagRequest adds or removes one tag across a set of clips.
type BulkTagRequest struct {
	IDs    []string `json:"ids"`
	TagID  string   `json:"tagId"`
	Action string   `json:"action"` // "add" or "remove"
}

// BulkTag applies one tag change to every listed clip, all or nothing.
func (h *Handlers) BulkTag(w http.ResponseWriter, r *http.Request) {
	var req BulkTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 || req.TagID == "" {
		writeJSONError(w, "ids and tagId are required", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "add":
		err = h.coord.AddTagBulk(r.Context(), req.IDs, req.TagID)
	case "remove":
		err = h.coord.RemoveTagBulk(r.Context(), req.IDs, req.TagID)
	default:
		writeJSONError(w, "action must be add or remove", http.StatusBadRequest)
		return
	}
	h.finishMutation(w, "bulk_tags", err)
}

// ClipTagsRequest replaces a clip's tag set.
type ClipTagsRequest struct {
	Tags []string `json:"tags"`
}

// SetClipTags replaces the tag ids on one clip.
func (h *Handlers) SetClipTags(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ClipTagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	h.finishMutation(w, "tags", h.coord.SetTags(r.Context(), id, req.Tags))
}

// DeleteClipsRequest names clips to delete from the library.
type DeleteClipsRequest struct {
	IDs []string `json:"ids"`
}

// DeleteClips removes the listed clips from the database and the
// snapshot. Files on disk are left alone; the next scan would re-index
// them, so callers removing clips permanently delete the files first.
func (h *Handlers) DeleteClips(w http.ResponseWriter, r *http.Request) {
	var req DeleteClipsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeJSONError(w, "ids are required", http.StatusBadRequest)
		return
	}

	n, err := h.db.DeleteClips(r.Context(), req.IDs)
	if err != nil {
		metrics.MutationsTotal.WithLabelValues("delete", "reverted").Inc()
		writeJSONError(w, "failed to delete clips", http.StatusInternalServerError)
		return
	}
	metrics.MutationsTotal.WithLabelValues("delete", "committed").Inc()

	h.store.RemoveClips(req.IDs)
	h.selection.Prune(func(id string) bool {
		_, ok := h.store.Clip(id)
		return ok
	})
	h.publishLibraryChanged()

	writeJSON(w, map[string]int64{"deleted": n})
}

// finishMutation translates a coordinator result into a response and a
// mutation metric.
func (h *Handlers) finishMutation(w http.ResponseWriter, kind string, err error) {
	if err != nil {
		metrics.MutationsTotal.WithLabelValues(kind, "reverted").Inc()
		if errors.Is(err, mutate.ErrNotFound) {
			writeJSONError(w, "clip not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to apply update", http.StatusInternalServerError)
		return
	}
	metrics.MutationsTotal.WithLabelValues(kind, "committed").Inc()
	writeJSONStatus(w, "ok")
}
