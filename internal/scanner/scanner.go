package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-library/internal/database"
	"clip-library/internal/events"
	"clip-library/internal/ffmpeg"
	"clip-library/internal/filesystem"
	"clip-library/internal/library"
	"clip-library/internal/logging"
	"clip-library/internal/memory"
	"clip-library/internal/metrics"
	"clip-library/internal/workers"
)

const (
	// Default polling interval for change detection
	defaultPollInterval = 30 * time.Second

	// Cap on concurrent thumbnail jobs regardless of CPU count
	maxThumbWorkers = 8
)

// clipFilePattern matches recorder output: a timestamped mp4 with
// either a space or underscore between date and time.
var clipFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[_ ](\d{2})-(\d{2})-(\d{2})\.mp4$`)

// Scanner keeps the database and in-memory snapshot in sync with the
// clip files on disk.
type Scanner struct {
	db       *database.Database
	store    *library.Store
	bus      *events.Bus
	runner   *ffmpeg.Runner
	thumbDir string

	pollInterval time.Duration
	stopChan     chan struct{}
	memMon       *memory.Monitor

	// intervalCh nudges the periodic scan loop to re-read the interval
	// and reset its ticker
	intervalCh chan time.Duration

	scanMu     sync.Mutex
	isScanning bool

	// Watched directory and scan interval plus last known state for
	// lightweight change detection, all under one lock
	stateMu            sync.RWMutex
	libraryDir         string
	scanInterval       time.Duration
	lastRootModTime    time.Time
	lastTopLevelCount  int
	lastSubdirModTimes map[string]time.Time
}

// New creates a Scanner over the given library directory. thumbDir
// receives generated thumbnails and must be writable.
func New(db *database.Database, store *library.Store, bus *events.Bus, runner *ffmpeg.Runner, libraryDir, thumbDir string, scanInterval time.Duration) *Scanner {
	return &Scanner{
		db:                 db,
		store:              store,
		bus:                bus,
		runner:             runner,
		thumbDir:           thumbDir,
		libraryDir:         libraryDir,
		scanInterval:       scanInterval,
		pollInterval:       defaultPollInterval,
		stopChan:           make(chan struct{}),
		intervalCh:         make(chan time.Duration, 1),
		lastSubdirModTimes: make(map[string]time.Time),
	}
}

// LibraryDir returns the directory currently being watched.
func (s *Scanner) LibraryDir() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.libraryDir
}

// SetLibraryDir re-points the scanner at a different directory. The
// cached tree state resets so the next poll sees everything as changed;
// callers trigger a scan themselves.
func (s *Scanner) SetLibraryDir(dir string) {
	s.stateMu.Lock()
	s.libraryDir = dir
	s.lastRootModTime = time.Time{}
	s.lastTopLevelCount = 0
	s.lastSubdirModTimes = make(map[string]time.Time)
	s.stateMu.Unlock()
	logging.Info("Library directory changed to %s", dir)
}

// SetMemoryMonitor attaches a backpressure monitor to the thumbnail
// pipeline. A nil monitor disables throttling.
func (s *Scanner) SetMemoryMonitor(mon *memory.Monitor) {
	s.memMon = mon
}

// ScanInterval returns the interval between periodic full scans.
func (s *Scanner) ScanInterval() time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.scanInterval
}

// SetScanInterval updates the periodic full-scan interval and resets
// the running scan loop's ticker, so the change takes effect without a
// restart. Non-positive intervals are ignored.
func (s *Scanner) SetScanInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.stateMu.Lock()
	s.scanInterval = interval
	s.stateMu.Unlock()

	// Coalescing send: the loop re-reads the field on wakeup, so one
	// pending nudge covers any number of updates.
	select {
	case s.intervalCh <- interval:
	default:
	}
}

// Start runs an initial scan in the background, then polls for changes
// and re-scans periodically until Stop is called.
func (s *Scanner) Start() {
	go func() {
		logging.Info("Starting initial library scan in background...")
		if err := s.Scan(context.Background()); err != nil {
			logging.Error("Initial scan error: %v", err)
		}
	}()

	go s.pollForChanges()
	go s.periodicScan()
}

// Stop stops background scanning.
func (s *Scanner) Stop() {
	close(s.stopChan)
}

// Scan walks the library directory, reconciles the database against
// what it finds, refreshes the in-memory snapshot, and fans out
// thumbnail generation for clips that need it. Concurrent calls
// coalesce: a scan already in progress makes this one a no-op.
func (s *Scanner) Scan(ctx context.Context) error {
	s.scanMu.Lock()
	if s.isScanning {
		s.scanMu.Unlock()
		logging.Debug("Scan already in progress, skipping")
		return nil
	}
	s.isScanning = true
	s.scanMu.Unlock()

	metrics.ScannerIsRunning.Set(1)
	metrics.ScannerRunsTotal.Inc()
	start := time.Now()

	defer func() {
		s.scanMu.Lock()
		s.isScanning = false
		s.scanMu.Unlock()
		metrics.ScannerIsRunning.Set(0)
		metrics.ScannerLastRunTimestamp.SetToCurrentTime()
		metrics.ScannerLastRunDuration.Set(time.Since(start).Seconds())
	}()

	found, err := s.walk()
	if err != nil {
		metrics.ScannerErrors.Inc()
		return fmt.Errorf("failed to walk library directory: %w", err)
	}
	metrics.ScannerClipsSeen.Add(float64(len(found)))
	s.bus.Publish(events.ScanProgress, library.ScanProgress{
		Total: len(found), Phase: library.PhaseScanning,
	})

	existing, err := s.db.ListClips(ctx)
	if err != nil {
		metrics.ScannerErrors.Inc()
		return fmt.Errorf("failed to load existing clips: %w", err)
	}
	byPath := make(map[string]library.Clip, len(existing))
	for _, c := range existing {
		byPath[c.Path] = c
	}

	added, err := s.reconcile(ctx, found, byPath)
	if err != nil {
		metrics.ScannerErrors.Inc()
		return err
	}
	if added > 0 {
		metrics.ScannerClipsAdded.Add(float64(added))
	}

	if err := s.Reload(ctx); err != nil {
		return err
	}
	if err := s.db.SetLastScanTime(ctx, time.Now()); err != nil {
		logging.Warn("Failed to record scan time: %v", err)
	}

	s.rememberTreeState()
	logging.Info("Scan complete: %d clips on disk, %d new, took %v", len(found), added, time.Since(start))

	s.generateThumbnails(ctx)
	return nil
}

// walk collects clip files up to two levels below the library root.
// A file directly in the root gets the root source; one inside a
// subdirectory gets the lowercased directory name.
func (s *Scanner) walk() ([]library.Clip, error) {
	root := s.LibraryDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var found []library.Clip
	for _, entry := range entries {
		if !entry.IsDir() {
			if clip, ok := s.examine(filepath.Join(root, entry.Name()), library.SourceRoot); ok {
				found = append(found, clip)
			}
			continue
		}

		subdir := filepath.Join(root, entry.Name())
		source := strings.ToLower(entry.Name())
		subEntries, err := os.ReadDir(subdir)
		if err != nil {
			logging.Warn("Skipping unreadable directory %s: %v", subdir, err)
			continue
		}
		for _, sub := range subEntries {
			if sub.IsDir() {
				continue
			}
			if clip, ok := s.examine(filepath.Join(subdir, sub.Name()), source); ok {
				found = append(found, clip)
			}
		}
	}
	return found, nil
}

// examine builds a Clip for a candidate file, rejecting anything that
// doesn't look like recorder output.
func (s *Scanner) examine(path, source string) (library.Clip, bool) {
	name := filepath.Base(path)
	recordedAt, ok := parseClipFilename(name)
	if !ok {
		return library.Clip{}, false
	}
	info, err := filesystem.Stat(path)
	if err != nil {
		logging.Warn("Failed to stat %s: %v", path, err)
		return library.Clip{}, false
	}
	return library.Clip{
		ID:         uuid.NewString(),
		Filename:   name,
		Path:       path,
		DirSource:  source,
		RecordedAt: recordedAt,
		FileSize:   info.Size(),
	}, true
}

// parseClipFilename extracts the recording timestamp from a clip
// filename, interpreted in local time the way the recorder wrote it.
func parseClipFilename(name string) (int64, bool) {
	m := clipFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	stamp := fmt.Sprintf("%s %s:%s:%s", m[1], m[2], m[3], m[4])
	t, err := time.ParseInLocation("2006-01-02 15:04:05", stamp, time.Local)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// reconcile upserts everything found on disk and removes rows whose
// file is gone. Known paths keep their identity and user edits.
func (s *Scanner) reconcile(ctx context.Context, found []library.Clip, byPath map[string]library.Clip) (added int, err error) {
	seen := make(map[string]bool, len(found))

	tx, err := s.db.BeginBatch()
	if err != nil {
		return 0, fmt.Errorf("failed to begin scan transaction: %w", err)
	}
	for i := range found {
		clip := &found[i]
		seen[clip.Path] = true
		if prev, ok := byPath[clip.Path]; ok {
			clip.ID = prev.ID
		} else {
			added++
		}
		if err = s.db.UpsertClip(tx, clip); err != nil {
			break
		}
	}
	if endErr := s.db.EndBatch(tx, err); endErr != nil {
		return 0, fmt.Errorf("scan transaction failed: %w", endErr)
	}

	var orphans []string
	for path, clip := range byPath {
		if !seen[path] {
			orphans = append(orphans, clip.ID)
		}
	}
	if len(orphans) > 0 {
		removed, err := s.db.DeleteClips(ctx, orphans)
		if err != nil {
			return added, fmt.Errorf("failed to remove orphaned clips: %w", err)
		}
		metrics.ScannerClipsRemoved.Add(float64(removed))
		logging.Info("Removed %d orphaned clips", removed)
	}
	return added, nil
}

// Reload replaces the in-memory snapshot from the database and
// notifies subscribers.
func (s *Scanner) Reload(ctx context.Context) error {
	clips, err := s.db.ListClips(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload clips: %w", err)
	}
	tags, err := s.db.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload tags: %w", err)
	}
	collections, err := s.db.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload collections: %w", err)
	}
	folders, err := s.db.ListSmartFolders(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload smart folders: %w", err)
	}

	s.store.ReplaceClips(clips)
	s.store.SetTags(tags)
	s.store.SetCollections(collections)
	s.store.SetSmartFolders(folders)

	s.bus.Publish(events.LibraryChanged, nil)
	return nil
}

// GenerateThumbnails runs the thumbnail backfill on demand, outside a
// full scan.
func (s *Scanner) GenerateThumbnails(ctx context.Context) {
	s.generateThumbnails(ctx)
}

// generateThumbnails probes metadata and renders thumbnails for clips
// that lack them, fanned out over a bounded worker pool.
func (s *Scanner) generateThumbnails(ctx context.Context) {
	if s.runner == nil || !s.runner.Available() {
		logging.Debug("ffmpeg unavailable, skipping thumbnail generation")
		s.bus.Publish(events.ScanProgress, library.ScanProgress{Phase: library.PhaseComplete})
		return
	}

	var pending []library.Clip
	for _, c := range s.store.Clips() {
		if c.ThumbPath == nil || c.DurationSecs == nil {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		s.bus.Publish(events.ScanProgress, library.ScanProgress{Phase: library.PhaseComplete})
		return
	}

	workerCount := workers.PoolSize(workers.Mixed, maxThumbWorkers)
	logging.Info("Generating thumbnails for %d clips with %d workers", len(pending), workerCount)

	jobs := make(chan library.Clip)
	var wg sync.WaitGroup
	var doneCount int
	var doneMu sync.Mutex

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for clip := range jobs {
				s.memMon.Wait()
				s.processClip(ctx, clip)

				doneMu.Lock()
				doneCount++
				n := doneCount
				doneMu.Unlock()
				s.bus.Publish(events.ScanProgress, library.ScanProgress{
					Done: n, Total: len(pending), Phase: library.PhaseThumbnails,
				})
			}
		}()
	}
	for _, clip := range pending {
		select {
		case jobs <- clip:
		case <-s.stopChan:
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()

	s.bus.Publish(events.ScanProgress, library.ScanProgress{
		Done: len(pending), Total: len(pending), Phase: library.PhaseComplete,
	})
}

// processClip fills in probed metadata and a thumbnail for one clip.
func (s *Scanner) processClip(ctx context.Context, clip library.Clip) {
	patch := library.ClipPatch{}

	if clip.DurationSecs == nil {
		info, err := s.runner.Probe(ctx, clip.Path)
		if err != nil {
			logging.Warn("Failed to probe %s: %v", clip.Filename, err)
		} else {
			patch.DurationSecs = &info.DurationSecs
			patch.Width = &info.Width
			patch.Height = &info.Height
		}
	}

	if clip.ThumbPath == nil {
		start := time.Now()
		thumbPath := filepath.Join(s.thumbDir, clip.ID+".jpg")
		if err := s.runner.Thumbnail(ctx, clip.Path, thumbPath); err != nil {
			metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
			logging.Warn("Failed to generate thumbnail for %s: %v", clip.Filename, err)
		} else {
			metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
			metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
			patch.ThumbPath = &thumbPath
		}
	}

	if patch == (library.ClipPatch{}) {
		return
	}
	if err := s.db.UpdateClip(ctx, clip.ID, patch); err != nil {
		logging.Warn("Failed to persist metadata for %s: %v", clip.Filename, err)
		return
	}
	s.store.PatchClip(clip.ID, patch)
	if patch.ThumbPath != nil {
		s.bus.Publish(events.ThumbReady, map[string]string{
			"clipId": clip.ID, "thumbPath": *patch.ThumbPath,
		})
	}
}

// periodicScan runs a full scan on the configured interval. The ticker
// resets when the interval changes at runtime; a scanner started with
// no interval waits until one is set.
func (s *Scanner) periodicScan() {
	interval := s.ScanInterval()
	if interval <= 0 {
		select {
		case <-s.intervalCh:
			interval = s.ScanInterval()
		case <-s.stopChan:
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Scan(context.Background()); err != nil {
				logging.Error("Periodic scan failed: %v", err)
			}
		case <-s.intervalCh:
			interval = s.ScanInterval()
			ticker.Reset(interval)
			logging.Info("Periodic scan interval now %v", interval)
		case <-s.stopChan:
			return
		}
	}
}

// pollForChanges periodically checks for file changes and triggers a
// scan when the tree looks different.
func (s *Scanner) pollForChanges() {
	logging.Info("Starting change detection polling (interval: %v)", s.pollInterval)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed, err := s.detectChanges()
			if err != nil {
				logging.Error("Error detecting changes: %v", err)
				continue
			}
			if changed {
				logging.Info("Library changes detected, triggering re-scan")
				if err := s.Scan(context.Background()); err != nil {
					logging.Error("Re-scan after change detection failed: %v", err)
				}
			}
		case <-s.stopChan:
			logging.Info("Change detection polling stopped")
			return
		}
	}
}

// detectChanges does a cheap shallow check: root mtime, top-level
// entry count, and subdirectory mtimes. It never walks the full tree,
// which keeps polling viable on network mounts.
func (s *Scanner) detectChanges() (bool, error) {
	root := s.LibraryDir()
	rootInfo, err := filesystem.Stat(root)
	if err != nil {
		return false, fmt.Errorf("failed to stat library directory: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return false, fmt.Errorf("failed to read library directory: %w", err)
	}

	subdirTimes := make(map[string]time.Time)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		subdirTimes[entry.Name()] = info.ModTime()
	}

	s.stateMu.RLock()
	changed := !rootInfo.ModTime().Equal(s.lastRootModTime) ||
		len(entries) != s.lastTopLevelCount ||
		len(subdirTimes) != len(s.lastSubdirModTimes)
	if !changed {
		for name, mod := range subdirTimes {
			if last, ok := s.lastSubdirModTimes[name]; !ok || !mod.Equal(last) {
				changed = true
				break
			}
		}
	}
	s.stateMu.RUnlock()

	return changed, nil
}

// rememberTreeState snapshots the shallow tree state after a scan so
// detectChanges compares against what was just indexed.
func (s *Scanner) rememberTreeState() {
	root := s.LibraryDir()
	rootInfo, err := filesystem.Stat(root)
	if err != nil {
		return
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}

	subdirTimes := make(map[string]time.Time)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			subdirTimes[entry.Name()] = info.ModTime()
		}
	}

	s.stateMu.Lock()
	s.lastRootModTime = rootInfo.ModTime()
	s.lastTopLevelCount = len(entries)
	s.lastSubdirModTimes = subdirTimes
	s.stateMu.Unlock()
}
