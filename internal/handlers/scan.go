package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"clip-library/internal/logging"
	"clip-library/internal/startup"
)

// Meta keys for operator-adjusted settings.
const (
	scanIntervalMetaKey = "scan_interval"
	libraryDirMetaKey   = "library_dir"
)

// SettingsResponse is the watched-directory configuration.
type SettingsResponse struct {
	LibraryDir   string `json:"libraryDir"`
	ScanInterval string `json:"scanInterval"`
}

// SettingsRequest adjusts the watched directory and scan interval.
// Omitted fields keep their current value.
type SettingsRequest struct {
	LibraryDir   *string `json:"libraryDir"`
	ScanInterval *string `json:"scanInterval"`
}

// TriggerScan kicks off a library scan in the background. A scan
// already in flight absorbs the request.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	go func() {
		if err := h.scanner.Scan(context.Background()); err != nil {
			logging.Error("requested scan failed: %v", err)
		}
	}()
	writeJSONStatus(w, "scanning")
}

// TriggerThumbnails kicks off thumbnail backfill in the background.
func (h *Handlers) TriggerThumbnails(w http.ResponseWriter, _ *http.Request) {
	if h.runner == nil || !h.runner.Available() {
		writeJSONError(w, "thumbnail generation requires ffmpeg", http.StatusServiceUnavailable)
		return
	}
	go h.scanner.GenerateThumbnails(context.Background())
	writeJSONStatus(w, "generating")
}

// GetSettings returns the watched-directory settings.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	interval := h.config.ScanInterval
	if saved, err := h.db.GetMeta(r.Context(), scanIntervalMetaKey); err == nil && saved != "" {
		if d, err := time.ParseDuration(saved); err == nil {
			interval = d
		}
	}
	writeJSON(w, SettingsResponse{
		LibraryDir:   h.scanner.LibraryDir(),
		ScanInterval: interval.String(),
	})
}

// PutSettings updates the watched directory and scan interval. Both are
// persisted and applied to the running scanner: the interval resets the
// periodic scan ticker, a directory change triggers a rescan.
func (h *Handlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	interval := h.config.ScanInterval
	if saved, err := h.db.GetMeta(r.Context(), scanIntervalMetaKey); err == nil && saved != "" {
		if d, err := time.ParseDuration(saved); err == nil {
			interval = d
		}
	}

	if req.ScanInterval != nil {
		d, err := time.ParseDuration(*req.ScanInterval)
		if err != nil || d <= 0 {
			writeJSONError(w, "invalid scan interval", http.StatusBadRequest)
			return
		}
		if err := h.db.SetMeta(r.Context(), scanIntervalMetaKey, d.String()); err != nil {
			writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
		h.scanner.SetScanInterval(d)
		interval = d
	}

	if req.LibraryDir != nil {
		dir, err := filepath.Abs(*req.LibraryDir)
		if err != nil {
			writeJSONError(w, "invalid library directory", http.StatusBadRequest)
			return
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			writeJSONError(w, "library directory does not exist", http.StatusBadRequest)
			return
		}
		if err := h.db.SetMeta(r.Context(), libraryDirMetaKey, dir); err != nil {
			writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
		if dir != h.scanner.LibraryDir() {
			h.scanner.SetLibraryDir(dir)
			go func() {
				if err := h.scanner.Scan(context.Background()); err != nil {
					logging.Error("rescan after directory change failed: %v", err)
				}
			}()
		}
	}

	writeJSON(w, SettingsResponse{
		LibraryDir:   h.scanner.LibraryDir(),
		ScanInterval: interval.String(),
	})
}

// FFmpegStatus reports whether the external codec tool was found.
func (h *Handlers) FFmpegStatus(w http.ResponseWriter, _ *http.Request) {
	available := h.runner != nil && h.runner.Available()
	writeJSON(w, map[string]bool{"available": available})
}

// GetVersion returns build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, startup.GetBuildInfo())
}
