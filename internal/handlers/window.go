package handlers

import (
	"net/http"
	"strconv"

	"clip-library/internal/pipeline"
	"clip-library/internal/virtualize"
)

// listRowHeight is the fixed row height of the compact list layout.
const listRowHeight = 96

// listOverscan is the overscan applied to the compact list layout.
const listOverscan = 3

// WindowResponse is the materialization plan for one viewport over the
// derived clip list. Exactly one of Grid, Timeline or List is set,
// matching the requested layout.
type WindowResponse struct {
	Total    int                        `json:"total"`
	Layout   string                     `json:"layout"`
	ClipIDs  []string                   `json:"clipIds"`
	Grid     *virtualize.GridWindow     `json:"grid,omitempty"`
	Timeline *virtualize.TimelineWindow `json:"timeline,omitempty"`
	List     *virtualize.Range          `json:"list,omitempty"`
}

// ClipWindow derives the clip list for the request's filter parameters
// and computes which slice of it a viewport must render. The window
// carries only ids; clients fetch clip records they do not already hold.
func (h *Handlers) ClipWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vp := virtualize.Viewport{
		ScrollTop: parseFloatParam(q.Get("scrollTop")),
		Height:    parseFloatParam(q.Get("height")),
		Width:     parseFloatParam(q.Get("width")),
	}

	clips := pipeline.Derive(h.deriveInputs(r))
	resp := WindowResponse{Total: len(clips), ClipIDs: []string{}}

	layout := q.Get("layout")
	if layout == "" {
		layout = "grid"
	}
	resp.Layout = layout

	var rng virtualize.Range
	switch layout {
	case "grid":
		gw := virtualize.DefaultGrid().Window(len(clips), vp)
		resp.Grid = &gw
		rng = gw.Items

	case "timeline":
		recordedAt := make([]int64, len(clips))
		for i := range clips {
			recordedAt[i] = clips[i].RecordedAt
		}
		tl := virtualize.NewTimeline(recordedAt)
		tw := tl.Window(vp)
		resp.Timeline = &tw
		// Visible items are the members of the visible groups.
		groups := tl.Groups()
		if !tw.Groups.Empty() {
			for gi := tw.Groups.Start; gi <= tw.Groups.End; gi++ {
				for _, idx := range groups[gi].Indices {
					resp.ClipIDs = append(resp.ClipIDs, clips[idx].ID)
				}
			}
		}
		writeJSON(w, resp)
		return

	case "list":
		lr := virtualize.UniformWindow(len(clips), listRowHeight, vp, listOverscan)
		resp.List = &lr
		rng = lr

	default:
		writeJSONError(w, "unknown layout", http.StatusBadRequest)
		return
	}

	if !rng.Empty() {
		for i := rng.Start; i <= rng.End && i < len(clips); i++ {
			resp.ClipIDs = append(resp.ClipIDs, clips[i].ID)
		}
	}
	writeJSON(w, resp)
}

func parseFloatParam(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
