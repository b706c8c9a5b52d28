package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"clip-library/internal/events"
	"clip-library/internal/ffmpeg"
	"clip-library/internal/library"
	"clip-library/internal/logging"

	"github.com/gorilla/mux"
)

// waveformBuckets is the number of peak bars computed per clip.
const waveformBuckets = 512

// TrimRequest cuts a sub-range out of a clip.
type TrimRequest struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Precise bool    `json:"precise"`
}

// GIFRequest exports a sub-range as an animated GIF.
type GIFRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	FPS   int     `json:"fps"`
	Width int     `json:"width"`
}

// CompressRequest re-encodes a clip at a quality preset.
type CompressRequest struct {
	Preset string `json:"preset"`
}

// jobStatus is the JobProgress event payload.
type jobStatus struct {
	ClipID    string `json:"clipId"`
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GetWaveform returns the cached waveform peaks for a clip, computing
// and caching them on first request.
func (h *Handlers) GetWaveform(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	clip, ok := h.store.Clip(id)
	if !ok {
		writeJSONError(w, "clip not found", http.StatusNotFound)
		return
	}

	peaks, err := h.db.GetWaveform(r.Context(), id)
	if err == nil {
		writeJSON(w, map[string][]float32{"peaks": peaks})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "failed to load waveform", http.StatusInternalServerError)
		return
	}

	if h.runner == nil || !h.runner.Available() {
		writeJSONError(w, "waveform generation requires ffmpeg", http.StatusServiceUnavailable)
		return
	}

	peaks, err = h.runner.Waveform(r.Context(), clip.Path, waveformBuckets)
	if err != nil {
		logging.Warn("waveform generation for %s failed: %v", id, err)
		writeJSONError(w, "failed to generate waveform", http.StatusInternalServerError)
		return
	}
	if err := h.db.SaveWaveform(r.Context(), id, peaks); err != nil {
		logging.Warn("caching waveform for %s failed: %v", id, err)
	}
	writeJSON(w, map[string][]float32{"peaks": peaks})
}

// TrimClip cuts [start, end) out of a clip into the export directory.
func (h *Handlers) TrimClip(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.End <= req.Start {
		writeJSONError(w, "end must be after start", http.StatusBadRequest)
		return
	}

	h.runExportJob(w, r, "trim", ".mp4", func(clip library.Clip, out string) error {
		return h.runner.Trim(r.Context(), clip.Path, out, req.Start, req.End, req.Precise)
	})
}

// ExportGIF renders [start, end) of a clip as an animated GIF.
func (h *Handlers) ExportGIF(w http.ResponseWriter, r *http.Request) {
	var req GIFRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.End <= req.Start {
		writeJSONError(w, "end must be after start", http.StatusBadRequest)
		return
	}

	h.runExportJob(w, r, "gif", ".gif", func(clip library.Clip, out string) error {
		return h.runner.GIF(r.Context(), clip.Path, out, req.Start, req.End, req.FPS, req.Width)
	})
}

// CompressClip re-encodes a clip at the requested quality preset.
func (h *Handlers) CompressClip(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Preset == "" {
		req.Preset = string(ffmpeg.CompressMedium)
	}

	h.runExportJob(w, r, "compress", ".mp4", func(clip library.Clip, out string) error {
		return h.runner.Compress(r.Context(), clip.Path, out, ffmpeg.CompressPreset(req.Preset))
	})
}

// runExportJob is the shared shell of the export operations: resolve the
// clip, allocate an output file, run, and publish progress events.
func (h *Handlers) runExportJob(w http.ResponseWriter, r *http.Request, operation, ext string,
	run func(clip library.Clip, out string) error) {
	id := mux.Vars(r)["id"]
	clip, ok := h.store.Clip(id)
	if !ok {
		writeJSONError(w, "clip not found", http.StatusNotFound)
		return
	}

	if h.runner == nil || !h.runner.Available() {
		writeJSONError(w, operation+" requires ffmpeg", http.StatusServiceUnavailable)
		return
	}
	if h.config == nil || !h.config.ExportsEnabled {
		writeJSONError(w, "export directory is not available", http.StatusServiceUnavailable)
		return
	}

	name := fmt.Sprintf("%s-%s-%d%s", clip.ID, operation, time.Now().Unix(), ext)
	out := filepath.Join(h.config.ExportDir, name)

	h.bus.Publish(events.JobProgress, jobStatus{
		ClipID: id, Operation: operation, Status: "running",
	})

	if err := run(clip, out); err != nil {
		logging.Warn("%s of clip %s failed: %v", operation, id, err)
		h.bus.Publish(events.JobProgress, jobStatus{
			ClipID: id, Operation: operation, Status: "failed", Error: err.Error(),
		})
		writeJSONError(w, operation+" failed", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.JobProgress, jobStatus{
		ClipID: id, Operation: operation, Status: "done", Output: "/exports/" + name,
	})
	writeJSON(w, map[string]string{"output": "/exports/" + name})
}
