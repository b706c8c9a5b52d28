package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clip-library/internal/database"
	"clip-library/internal/events"
	"clip-library/internal/ffmpeg"
	"clip-library/internal/filesystem"
	"clip-library/internal/handlers"
	"clip-library/internal/library"
	"clip-library/internal/logging"
	"clip-library/internal/memory"
	"clip-library/internal/metrics"
	"clip-library/internal/middleware"
	"clip-library/internal/mutate"
	"clip-library/internal/scanner"
	"clip-library/internal/search"
	"clip-library/internal/startup"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Detect the external codec tool
	runner := ffmpeg.Detect()
	startup.LogFFmpegInit(runner.Available())

	store := library.NewStore()
	bus := events.NewBus()

	// Scanner, with saved overrides if an operator adjusted the interval
	// or re-pointed the library through the settings API
	scanInterval := config.ScanInterval
	if saved, err := db.GetMeta(context.Background(), "scan_interval"); err == nil && saved != "" {
		if d, err := time.ParseDuration(saved); err == nil && d > 0 {
			logging.Info("Using saved scan interval: %v", d)
			scanInterval = d
		}
	}
	libraryDir := config.LibraryDir
	if saved, err := db.GetMeta(context.Background(), "library_dir"); err == nil && saved != "" {
		logging.Info("Using saved library directory: %s", saved)
		libraryDir = saved
	}

	filesystem.SetVolumes(map[string]string{
		"library":    libraryDir,
		"thumbnails": config.ThumbnailDir,
		"exports":    config.ExportDir,
		"database":   config.DatabaseDir,
	})

	startup.LogScannerInit(scanInterval)
	scan := scanner.New(db, store, bus, runner, libraryDir, config.ThumbnailDir, scanInterval)
	memMon := memory.NewMonitor(memory.DefaultMonitorConfig())
	memMon.Start()
	scan.SetMemoryMonitor(memMon)
	scan.Start()
	startup.LogScannerStarted()

	// Semantic search, when an embedding service is configured
	var ranker *search.Ranker
	if config.EmbeddingURL != "" {
		ranker = search.NewRanker(search.NewHTTPEmbedder(config.EmbeddingURL), db)
	}

	coord := mutate.New(store, db)

	h := handlers.New(db, store, scan, coord, runner, ranker, bus, config)
	router := h.Router()
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Bridge store notifications to event-stream subscribers and keep
	// session state consistent with the snapshot
	go watchLibrary(bus, store, h)

	// Metrics
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
		collector = metrics.NewCollector(storeStats{store}, 30*time.Second)
		collector.Start()
		go serveMetrics(config.MetricsPort)
	}

	// Middleware chain: compression outermost, then logging, then metrics
	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // event stream stays open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, scan, collector, memMon, db)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

// storeStats adapts the library store to the metrics collector.
type storeStats struct {
	store *library.Store
}

func (s storeStats) GetStats() metrics.Stats {
	clips := s.store.Clips()
	bySource := make(map[string]int)
	starred := 0
	for _, c := range clips {
		bySource[c.DirSource]++
		if c.Starred {
			starred++
		}
	}
	return metrics.Stats{
		ClipsBySource:     bySource,
		TotalStarred:      starred,
		TotalTags:         len(s.store.Tags()),
		TotalCollections:  len(s.store.Collections()),
		TotalSmartFolders: len(s.store.SmartFolders()),
	}
}

// watchLibrary reacts to store mutations: each one becomes a
// library-changed hint for event-stream subscribers, and ids that
// vanished from the snapshot drop out of the selection. Notifications
// coalesce, so a burst of mutations costs one pass.
func watchLibrary(bus *events.Bus, store *library.Store, h *handlers.Handlers) {
	for range store.Subscribe() {
		bus.Publish(events.LibraryChanged, nil)
		h.Selection().Prune(func(id string) bool {
			_, ok := store.Clip(id)
			return ok
		})
	}
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Error("Metrics server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, scan *scanner.Scanner, collector *metrics.Collector, memMon *memory.Monitor, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping scanner")
	scan.Stop()
	memMon.Stop()
	startup.LogShutdownStepComplete("Scanner stopped")

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
