package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clip-library/internal/database"
	"clip-library/internal/events"
	"clip-library/internal/library"
)

func TestParseClipFilename(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"2026-01-28 18-40-28.mp4", true},
		{"2026-01-28_18-40-28.mp4", true},
		{"2026-01-28 18-40-28.mkv", false},
		{"random-video.mp4", false},
		{"2026-01-28 18-40.mp4", false},
		{"prefix 2026-01-28 18-40-28.mp4", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := parseClipFilename(tc.name)
			if ok != tc.ok {
				t.Fatalf("parseClipFilename(%q) ok = %v, want %v", tc.name, ok, tc.ok)
			}
		})
	}
}

func TestParseClipFilenameTimestamp(t *testing.T) {
	got, ok := parseClipFilename("2026-01-28 18-40-28.mp4")
	if !ok {
		t.Fatal("valid filename rejected")
	}
	want := time.Date(2026, 1, 28, 18, 40, 28, 0, time.Local).Unix()
	if got != want {
		t.Fatalf("timestamp = %d, want %d", got, want)
	}

	// Underscore separator parses identically.
	underscore, _ := parseClipFilename("2026-01-28_18-40-28.mp4")
	if underscore != got {
		t.Fatalf("separator changed the timestamp: %d vs %d", underscore, got)
	}
}

func writeClipFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testScanner(t *testing.T, libraryDir string) (*Scanner, *library.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.db")
	db, err := database.New(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := library.NewStore()
	// nil runner: ffmpeg steps are skipped in tests
	s := New(db, store, events.NewBus(), nil, libraryDir, t.TempDir(), 0)
	return s, store
}

func TestSetLibraryDirRescansNewTree(t *testing.T) {
	oldDir := t.TempDir()
	writeClipFile(t, oldDir, "2026-01-28 18-40-28.mp4")

	s, store := testScanner(t, oldDir)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.Clips()) != 1 {
		t.Fatalf("initial scan indexed %d clips, want 1", len(store.Clips()))
	}

	newDir := t.TempDir()
	writeClipFile(t, newDir, "2026-02-01 09-00-00.mp4")
	writeClipFile(t, newDir, "2026-02-02 09-00-00.mp4")

	s.SetLibraryDir(newDir)
	if s.LibraryDir() != newDir {
		t.Fatalf("LibraryDir = %q, want %q", s.LibraryDir(), newDir)
	}
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	clips := store.Clips()
	if len(clips) != 2 {
		t.Fatalf("rescan indexed %d clips, want 2", len(clips))
	}
	for _, c := range clips {
		if c.Filename == "2026-01-28 18-40-28.mp4" {
			t.Error("clip from the old tree survived the rescan")
		}
	}
}

func TestSetScanIntervalSignalsScanLoop(t *testing.T) {
	s, _ := testScanner(t, t.TempDir())

	s.SetScanInterval(45 * time.Second)
	if got := s.ScanInterval(); got != 45*time.Second {
		t.Fatalf("ScanInterval = %v, want 45s", got)
	}
	select {
	case <-s.intervalCh:
	default:
		t.Fatal("interval change never nudged the scan loop")
	}

	// Non-positive intervals are ignored.
	s.SetScanInterval(0)
	if got := s.ScanInterval(); got != 45*time.Second {
		t.Fatalf("zero interval accepted: %v", got)
	}
	select {
	case <-s.intervalCh:
		t.Fatal("ignored interval still nudged the scan loop")
	default:
	}
}

func TestPeriodicScanAdoptsRuntimeInterval(t *testing.T) {
	dir := t.TempDir()
	writeClipFile(t, dir, "2026-01-28 18-40-28.mp4")

	// Interval 0: the loop waits for one to be set.
	s, store := testScanner(t, dir)
	go s.periodicScan()
	defer s.Stop()

	s.SetScanInterval(20 * time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.Clips()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("periodic scan never ran after the interval was set at runtime")
}

func TestScanIndexesTwoLevels(t *testing.T) {
	dir := t.TempDir()
	writeClipFile(t, dir, "2026-01-28 18-40-28.mp4")
	writeClipFile(t, dir, "notes.txt")

	captures := filepath.Join(dir, "Captures")
	if err := os.Mkdir(captures, 0o755); err != nil {
		t.Fatal(err)
	}
	writeClipFile(t, captures, "2026-01-29_10-00-00.mp4")

	// Third level is out of scope.
	deep := filepath.Join(captures, "nested")
	if err := os.Mkdir(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	writeClipFile(t, deep, "2026-01-30 08-00-00.mp4")

	s, store := testScanner(t, dir)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	clips := store.Clips()
	if len(clips) != 2 {
		t.Fatalf("indexed %d clips, want 2", len(clips))
	}
	sources := make(map[string]string)
	for _, c := range clips {
		sources[c.Filename] = c.DirSource
	}
	if sources["2026-01-28 18-40-28.mp4"] != library.SourceRoot {
		t.Errorf("root clip source = %q", sources["2026-01-28 18-40-28.mp4"])
	}
	if sources["2026-01-29_10-00-00.mp4"] != "captures" {
		t.Errorf("subdir clip source = %q, want lowercased dir name", sources["2026-01-29_10-00-00.mp4"])
	}
}

func TestRescanKeepsIdentityAndEdits(t *testing.T) {
	dir := t.TempDir()
	writeClipFile(t, dir, "2026-01-28 18-40-28.mp4")

	s, store := testScanner(t, dir)
	ctx := context.Background()
	if err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	first := store.Clips()[0]
	desc := "clutch round"
	if err := s.db.UpdateClip(ctx, first.ID, library.ClipPatch{Description: &desc}); err != nil {
		t.Fatal(err)
	}

	if err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	after := store.Clips()
	if len(after) != 1 {
		t.Fatalf("rescan changed clip count to %d", len(after))
	}
	if after[0].ID != first.ID {
		t.Error("rescan minted a new id for a known path")
	}
	if after[0].Description != desc {
		t.Errorf("rescan lost the description: %q", after[0].Description)
	}
}

func TestScanRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	keep := writeClipFile(t, dir, "2026-01-28 18-40-28.mp4")
	gone := writeClipFile(t, dir, "2026-01-29 10-00-00.mp4")

	s, store := testScanner(t, dir)
	ctx := context.Background()
	if err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.Clips()) != 2 {
		t.Fatalf("setup indexed %d clips", len(store.Clips()))
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	if err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	clips := store.Clips()
	if len(clips) != 1 {
		t.Fatalf("orphan not removed: %d clips remain", len(clips))
	}
	if clips[0].Path != keep {
		t.Errorf("wrong clip removed, kept %s", clips[0].Path)
	}
}

func TestDetectChangesAfterNewFile(t *testing.T) {
	dir := t.TempDir()
	writeClipFile(t, dir, "2026-01-28 18-40-28.mp4")

	s, _ := testScanner(t, dir)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	changed, err := s.detectChanges()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("unchanged tree reported as changed")
	}

	writeClipFile(t, dir, "2026-01-29 10-00-00.mp4")
	changed, err = s.detectChanges()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("new file not detected")
	}
}
