package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_library_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_library_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"}, // "commit" or "rollback"
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_scanner_runs_total",
			Help: "Total number of library scans",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_scanner_last_run_timestamp",
			Help: "Timestamp of the last library scan",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_scanner_last_run_duration_seconds",
			Help: "Duration of the last library scan in seconds",
		},
	)

	ScannerClipsSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_scanner_clips_seen_total",
			Help: "Total number of clip files seen across all scans",
		},
	)

	ScannerClipsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_scanner_clips_added_total",
			Help: "Total number of new clips indexed",
		},
	)

	ScannerClipsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_scanner_clips_removed_total",
			Help: "Total number of orphaned clips removed",
		},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_scanner_errors_total",
			Help: "Total number of scanner errors",
		},
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_scanner_running",
			Help: "Whether a library scan is currently running (1 = running, 0 = idle)",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clip_library_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Semantic search metrics
var (
	SearchDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_search_dispatches_total",
			Help: "Total number of semantic search dispatches",
		},
		[]string{"status"}, // "success", "error", "stale"
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clip_library_search_duration_seconds",
			Help:    "Semantic search duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clip_library_search_results_returned",
			Help:    "Number of results returned per semantic search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
	)
)

// Mutation metrics
var (
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_mutations_total",
			Help: "Total number of clip mutations",
		},
		[]string{"kind", "status"}, // status: "committed" or "reverted"
	)
)

// FFmpeg metrics
var (
	FFmpegJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_ffmpeg_jobs_total",
			Help: "Total number of ffmpeg jobs",
		},
		[]string{"operation", "status"},
	)

	FFmpegJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_library_ffmpeg_job_duration_seconds",
			Help:    "FFmpeg job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	FFmpegJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_ffmpeg_jobs_in_progress",
			Help: "Number of ffmpeg jobs currently in progress",
		},
	)
)

// Library metrics
var (
	LibraryClipsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_library_clips_total",
			Help: "Total number of clips by source directory",
		},
		[]string{"source"},
	)

	LibraryStarredTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_starred_total",
			Help: "Total number of starred clips",
		},
	)

	LibraryTagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_tags_total",
			Help: "Total number of tags",
		},
	)

	LibraryCollectionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_collections_total",
			Help: "Total number of collections",
		},
	)

	LibrarySmartFoldersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_smart_folders_total",
			Help: "Total number of smart folders",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_fs_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_fs_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_library_fs_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryHeapBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_memory_heap_bytes",
			Help: "Current Go heap allocation in bytes",
		},
	)

	MemoryLimitBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_library_memory_limit_bytes",
			Help: "Configured Go soft memory limit in bytes",
		},
	)

	MemoryThrottleEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_library_memory_throttle_events_total",
			Help: "Times thumbnail workers were paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_library_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
