package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"clip-library/internal/library"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.db")
	d, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return d
}

func insertClip(t *testing.T, d *Database, c library.Clip) {
	t.Helper()
	tx, err := d.BeginBatch()
	if err != nil {
		t.Fatal(err)
	}
	err = d.UpsertClip(tx, &c)
	if endErr := d.EndBatch(tx, err); endErr != nil {
		t.Fatalf("failed to insert clip: %v", endErr)
	}
}

func sampleClip(id, path string) library.Clip {
	dur := 42.5
	return library.Clip{
		ID:           id,
		Filename:     filepath.Base(path),
		Path:         path,
		DirSource:    library.SourceRoot,
		RecordedAt:   1700000000,
		FileSize:     1 << 20,
		DurationSecs: &dur,
	}
}

func TestUpsertAndListClips(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("c1", "/videos/2026-01-28 18-40-28.mp4"))
	insertClip(t, d, sampleClip("c2", "/videos/2026-01-29 10-00-00.mp4"))

	clips, err := d.ListClips(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(clips))
	}
	if clips[0].DurationSecs == nil || *clips[0].DurationSecs != 42.5 {
		t.Errorf("duration not round-tripped: %v", clips[0].DurationSecs)
	}
	if clips[0].Width != nil {
		t.Errorf("unset width came back non-nil: %v", *clips[0].Width)
	}
}

func TestUpsertKeepsIdentityOnRescan(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("original-id", "/videos/a.mp4"))

	desc := "user wrote this"
	if err := d.UpdateClip(ctx, "original-id", library.ClipPatch{Description: &desc}); err != nil {
		t.Fatal(err)
	}

	// A re-scan of the same path carries a fresh id and no description;
	// the row must keep both.
	rescanned := sampleClip("fresh-id", "/videos/a.mp4")
	rescanned.FileSize = 2 << 20
	insertClip(t, d, rescanned)

	clips, err := d.ListClips(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 1 {
		t.Fatalf("rescan duplicated the row: %d clips", len(clips))
	}
	if clips[0].ID != "original-id" {
		t.Errorf("id changed on rescan: %s", clips[0].ID)
	}
	if clips[0].Description != "user wrote this" {
		t.Errorf("description lost on rescan: %q", clips[0].Description)
	}
	if clips[0].FileSize != 2<<20 {
		t.Errorf("file size not refreshed: %d", clips[0].FileSize)
	}
}

func TestUpdateClipUnknownID(t *testing.T) {
	d := testDB(t)
	starred := true
	err := d.UpdateClip(context.Background(), "nope", library.ClipPatch{Starred: &starred})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestClipTagsRoundTrip(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("c1", "/videos/a.mp4"))

	tag1, err := d.GetOrCreateTag(ctx, "Epic Moments")
	if err != nil {
		t.Fatal(err)
	}
	tag2, err := d.GetOrCreateTag(ctx, "fails")
	if err != nil {
		t.Fatal(err)
	}

	// Case-insensitive lookup returns the existing tag.
	again, err := d.GetOrCreateTag(ctx, "epic moments")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != tag1.ID {
		t.Errorf("case-insensitive lookup created a duplicate tag")
	}

	if err := d.SetClipTags(ctx, "c1", []string{tag1.ID, tag2.ID}); err != nil {
		t.Fatal(err)
	}

	clips, err := d.ListClips(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips[0].Tags) != 2 {
		t.Fatalf("clip has %d tags, want 2", len(clips[0].Tags))
	}

	// Replacement is atomic: the new set fully replaces the old.
	if err := d.SetClipTags(ctx, "c1", []string{tag2.ID}); err != nil {
		t.Fatal(err)
	}
	clip, err := d.GetClip(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(clip.Tags) != 1 || clip.Tags[0] != tag2.ID {
		t.Fatalf("tags after replacement = %v, want [%s]", clip.Tags, tag2.ID)
	}

	tags, err := d.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(tags))
	}
	// Sorted by name: "Epic Moments" then "fails"; counts reflect links.
	if tags[0].Name != "Epic Moments" || tags[0].ClipCount != 0 {
		t.Errorf("tag[0] = %s count %d", tags[0].Name, tags[0].ClipCount)
	}
	if tags[1].Name != "fails" || tags[1].ClipCount != 1 {
		t.Errorf("tag[1] = %s count %d", tags[1].Name, tags[1].ClipCount)
	}
}

func TestDeleteClipsCascades(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("c1", "/videos/a.mp4"))
	tag, err := d.GetOrCreateTag(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetClipTags(ctx, "c1", []string{tag.ID}); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertEmbedding(ctx, "c1", []float32{1, 0}, "clip-vit"); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveWaveform(ctx, "c1", []float32{0.5, 0.9}); err != nil {
		t.Fatal(err)
	}

	removed, err := d.DeleteClips(ctx, []string{"c1"})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	vectors, err := d.AllEmbeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 0 {
		t.Error("embedding survived clip deletion")
	}
	if _, err := d.GetWaveform(ctx, "c1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("waveform survived clip deletion: %v", err)
	}

	// The tag itself stays; only the link is gone.
	tags, err := d.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].ClipCount != 0 {
		t.Errorf("tag state after cascade: %+v", tags)
	}
}

func TestCollections(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("c1", "/videos/a.mp4"))
	insertClip(t, d, sampleClip("c2", "/videos/b.mp4"))

	col, err := d.CreateCollection(ctx, "Highlights", "best of", "#ff0000")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.AddClipsToCollection(ctx, col.ID, []string{"c1", "c2"}); err != nil {
		t.Fatal(err)
	}
	// Re-adding an existing member is a no-op, not an error.
	if err := d.AddClipsToCollection(ctx, col.ID, []string{"c1"}); err != nil {
		t.Fatal(err)
	}

	ids, err := d.CollectionClipIDs(ctx, col.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("member ids = %v, want 2 members", ids)
	}

	cols, err := d.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].ClipCount != 2 {
		t.Fatalf("collections = %+v", cols)
	}

	if err := d.RemoveClipsFromCollection(ctx, col.ID, []string{"c1"}); err != nil {
		t.Fatal(err)
	}
	ids, err = d.CollectionClipIDs(ctx, col.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "c2" {
		t.Fatalf("members after removal = %v, want [c2]", ids)
	}

	if err := d.DeleteCollection(ctx, col.ID); err != nil {
		t.Fatal(err)
	}
	clips, err := d.ListClips(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 {
		t.Error("deleting a collection deleted its clips")
	}
}

func TestSmartFolders(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	rules := `[{"field":"starred","operator":"is","value":true}]`
	sf, err := d.CreateSmartFolder(ctx, "Starred only", "#00ff00", rules)
	if err != nil {
		t.Fatal(err)
	}

	folders, err := d.ListSmartFolders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0].Rules != rules {
		t.Fatalf("folders = %+v", folders)
	}

	newRules := `[{"field":"fileSize","operator":"gt","value":1000}]`
	if err := d.UpdateSmartFolder(ctx, sf.ID, "Big files", "", newRules); err != nil {
		t.Fatal(err)
	}
	folders, err = d.ListSmartFolders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if folders[0].Name != "Big files" || folders[0].Rules != newRules {
		t.Fatalf("update not applied: %+v", folders[0])
	}

	if err := d.DeleteSmartFolder(ctx, sf.ID); err != nil {
		t.Fatal(err)
	}
	folders, err = d.ListSmartFolders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 0 {
		t.Error("smart folder not deleted")
	}
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertClip(t, d, sampleClip("c1", "/videos/a.mp4"))

	v := []float32{0.1, -0.2, 0.3}
	if err := d.UpsertEmbedding(ctx, "c1", v, "clip-vit"); err != nil {
		t.Fatal(err)
	}
	// Upsert replaces.
	v2 := []float32{1, 2, 3}
	if err := d.UpsertEmbedding(ctx, "c1", v2, "clip-vit"); err != nil {
		t.Fatal(err)
	}

	vectors, err := d.AllEmbeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := vectors["c1"]
	if !ok || len(got) != 3 {
		t.Fatalf("vectors = %v", vectors)
	}
	for i := range v2 {
		if got[i] != v2[i] {
			t.Fatalf("vector[%d] = %v, want %v", i, got[i], v2[i])
		}
	}
}

func TestMetaAndScanTime(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	if _, err := d.GetMeta(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing key err = %v, want sql.ErrNoRows", err)
	}

	last, err := d.GetLastScanTime(ctx)
	if err != nil || !last.IsZero() {
		t.Fatalf("fresh db last scan = %v, %v", last, err)
	}

	now := time.Now().Truncate(time.Second)
	if err := d.SetLastScanTime(ctx, now); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetLastScanTime(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Fatalf("last scan = %v, want %v", got, now)
	}
}

func TestMigrationFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	// Build a version-1 database by hand: clips without description,
	// no schema_version key.
	raw, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_, err = raw.Exec(`
		CREATE TABLE clips (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			dir_source TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			duration_secs REAL,
			width INTEGER,
			height INTEGER,
			thumb_path TEXT,
			starred INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		INSERT INTO clips (id, filename, path, dir_source, recorded_at)
		VALUES ('old', 'old.mp4', '/videos/old.mp4', 'root', 1700000000);
	`)
	if err != nil {
		t.Fatal(err)
	}
	if err := raw.Close(); err != nil {
		t.Fatal(err)
	}

	d, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	defer func() { _ = d.Close() }()

	clips, err := d.ListClips(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 1 || clips[0].Description != "" {
		t.Fatalf("migrated clips = %+v", clips)
	}

	version, err := d.GetMeta(context.Background(), "schema_version")
	if err != nil || version != "2" {
		t.Fatalf("schema_version = %q, %v", version, err)
	}
}
