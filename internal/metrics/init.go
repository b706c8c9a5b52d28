package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "upsert_clip", "list_clips",
		"update_clip", "delete_clips", "set_clip_tags", "list_tags", "create_tag",
		"delete_tag", "list_collections", "save_collection", "delete_collection",
		"list_smart_folders", "save_smart_folder", "delete_smart_folder",
		"upsert_embedding", "all_embeddings", "get_waveform", "save_waveform",
		"get_meta", "set_meta"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	// --- Thumbnail generation ---
	for _, status := range []string{"success", "error", "skipped"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	// --- Semantic search ---
	for _, status := range []string{"success", "error", "stale"} {
		SearchDispatchesTotal.WithLabelValues(status)
	}

	// --- Mutations ---
	for _, kind := range []string{"star", "description", "tags", "bulk_star", "bulk_tags", "delete"} {
		MutationsTotal.WithLabelValues(kind, "committed")
		MutationsTotal.WithLabelValues(kind, "reverted")
	}

	// --- Filesystem retries ---
	for _, op := range []string{"stat", "open"} {
		for _, volume := range []string{"library", "thumbnails", "exports", "database"} {
			FilesystemStaleErrors.WithLabelValues(op, volume)
			FilesystemRetrySuccess.WithLabelValues(op, volume)
			FilesystemRetryFailures.WithLabelValues(op, volume)
		}
	}

	// --- FFmpeg operations ---
	for _, op := range []string{"probe", "frame", "trim", "gif", "compress", "waveform"} {
		FFmpegJobsTotal.WithLabelValues(op, "success")
		FFmpegJobsTotal.WithLabelValues(op, "error")
		FFmpegJobDuration.WithLabelValues(op)
	}
}
