package handlers

import (
	"net/http"

	"clip-library/internal/database"
	"clip-library/internal/events"
	"clip-library/internal/ffmpeg"
	"clip-library/internal/filesystem"
	"clip-library/internal/library"
	"clip-library/internal/mutate"
	"clip-library/internal/scanner"
	"clip-library/internal/search"
	"clip-library/internal/selection"
	"clip-library/internal/startup"

	"github.com/gorilla/mux"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	db        *database.Database
	store     *library.Store
	scanner   *scanner.Scanner
	coord     *mutate.Coordinator
	runner    *ffmpeg.Runner
	ranker    *search.Ranker // nil when no embedding service is configured
	bus       *events.Bus
	selection *selection.Set
	config    *startup.Config

	// searchClient debounces query edits into ranker dispatches; its
	// active result set drives the clip list. Nil alongside ranker.
	searchClient *search.Client
}

// New wires up the handler set.
func New(db *database.Database, store *library.Store, scan *scanner.Scanner,
	coord *mutate.Coordinator, runner *ffmpeg.Runner, ranker *search.Ranker,
	bus *events.Bus, config *startup.Config) *Handlers {
	h := &Handlers{
		db:        db,
		store:     store,
		scanner:   scan,
		coord:     coord,
		runner:    runner,
		ranker:    ranker,
		bus:       bus,
		selection: selection.New(),
		config:    config,
	}
	if ranker != nil {
		h.searchClient = search.NewClient(ranker, func() {
			bus.Publish(events.SearchResults, nil)
		})
	}
	return h
}

// Selection exposes the server-side selection set so the library watcher
// can prune ids that vanish on rescan.
func (h *Handlers) Selection() *selection.Set {
	return h.selection
}

// Router builds the application router.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Clips
	api.HandleFunc("/clips", h.ListClips).Methods(http.MethodGet)
	api.HandleFunc("/clips", h.DeleteClips).Methods(http.MethodDelete)
	api.HandleFunc("/clips/window", h.ClipWindow).Methods(http.MethodGet)
	api.HandleFunc("/clips/star", h.SetStarredBulk).Methods(http.MethodPost)
	api.HandleFunc("/clips/tags", h.BulkTag).Methods(http.MethodPost)
	api.HandleFunc("/clips/{id}", h.GetClip).Methods(http.MethodGet)
	api.HandleFunc("/clips/{id}", h.UpdateClip).Methods(http.MethodPatch)
	api.HandleFunc("/clips/{id}/star", h.SetStarred).Methods(http.MethodPost)
	api.HandleFunc("/clips/{id}/tags", h.SetClipTags).Methods(http.MethodPut)
	api.HandleFunc("/clips/{id}/waveform", h.GetWaveform).Methods(http.MethodGet)
	api.HandleFunc("/clips/{id}/trim", h.TrimClip).Methods(http.MethodPost)
	api.HandleFunc("/clips/{id}/gif", h.ExportGIF).Methods(http.MethodPost)
	api.HandleFunc("/clips/{id}/compress", h.CompressClip).Methods(http.MethodPost)

	// Tags
	api.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	api.HandleFunc("/tags", h.CreateTag).Methods(http.MethodPost)
	api.HandleFunc("/tags/{id}", h.UpdateTag).Methods(http.MethodPatch)
	api.HandleFunc("/tags/{id}", h.DeleteTag).Methods(http.MethodDelete)

	// Collections
	api.HandleFunc("/collections", h.ListCollections).Methods(http.MethodGet)
	api.HandleFunc("/collections", h.CreateCollection).Methods(http.MethodPost)
	api.HandleFunc("/collections/{id}", h.UpdateCollection).Methods(http.MethodPatch)
	api.HandleFunc("/collections/{id}", h.DeleteCollection).Methods(http.MethodDelete)
	api.HandleFunc("/collections/{id}/clips", h.CollectionClips).Methods(http.MethodGet)
	api.HandleFunc("/collections/{id}/clips", h.AddCollectionClips).Methods(http.MethodPost)
	api.HandleFunc("/collections/{id}/clips", h.RemoveCollectionClips).Methods(http.MethodDelete)

	// Smart folders
	api.HandleFunc("/smart-folders", h.ListSmartFolders).Methods(http.MethodGet)
	api.HandleFunc("/smart-folders", h.CreateSmartFolder).Methods(http.MethodPost)
	api.HandleFunc("/smart-folders/{id}", h.UpdateSmartFolder).Methods(http.MethodPut)
	api.HandleFunc("/smart-folders/{id}", h.DeleteSmartFolder).Methods(http.MethodDelete)

	// Selection
	api.HandleFunc("/selection", h.GetSelection).Methods(http.MethodGet)
	api.HandleFunc("/selection", h.SelectAll).Methods(http.MethodPut)
	api.HandleFunc("/selection", h.ClearSelection).Methods(http.MethodDelete)
	api.HandleFunc("/selection/toggle", h.ToggleSelection).Methods(http.MethodPost)

	// Search, scan, settings
	api.HandleFunc("/search", h.SemanticSearch).Methods(http.MethodGet)
	api.HandleFunc("/search/query", h.UpdateSearchQuery).Methods(http.MethodPut)
	api.HandleFunc("/search/results", h.GetSearchResults).Methods(http.MethodGet)
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost)
	api.HandleFunc("/thumbnails", h.TriggerThumbnails).Methods(http.MethodPost)
	api.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.PutSettings).Methods(http.MethodPut)
	api.HandleFunc("/ffmpeg", h.FFmpegStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", h.Events).Methods(http.MethodGet)
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Health
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.Live).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Ready).Methods(http.MethodGet)

	// Static artifacts
	if h.config != nil && h.config.ThumbnailsEnabled {
		r.PathPrefix("/thumbs/").Handler(
			http.StripPrefix("/thumbs/", http.FileServer(filesystem.Dir(h.config.ThumbnailDir))))
	}
	if h.config != nil && h.config.ExportsEnabled {
		r.PathPrefix("/exports/").Handler(
			http.StripPrefix("/exports/", http.FileServer(filesystem.Dir(h.config.ExportDir))))
	}

	return r
}
