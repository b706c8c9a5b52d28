package pipeline

import (
	"testing"

	"clip-library/internal/library"
)

func ptrF(f float64) *float64 { return &f }
func ptrI(i int64) *int64     { return &i }
func ptrB(b bool) *bool       { return &b }

func clip(id, filename string, recordedAt int64) library.Clip {
	return library.Clip{
		ID:         id,
		Filename:   filename,
		Path:       "/videos/" + filename,
		DirSource:  library.SourceRoot,
		RecordedAt: recordedAt,
		FileSize:   1 << 20,
	}
}

func ids(clips []library.Clip) []string {
	out := make([]string, len(clips))
	for i, c := range clips {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDeriveIsDeterministic(t *testing.T) {
	in := Inputs{
		Clips: []library.Clip{
			clip("a", "a.mp4", 3),
			clip("b", "b.mp4", 1),
			clip("c", "c.mp4", 2),
		},
		Sort: library.SortConfig{Field: library.SortByRecordedAt, Dir: library.SortAsc},
	}

	first := ids(Derive(in))
	for i := 0; i < 5; i++ {
		if got := ids(Derive(in)); !equalIDs(got, first...) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
	// input snapshot must be untouched
	if in.Clips[0].ID != "a" || in.Clips[1].ID != "b" {
		t.Error("Derive mutated its input slice")
	}
}

func TestStarredPseudoCollectionScope(t *testing.T) {
	a := clip("a", "a.mp4", 1)
	b := clip("b", "b.mp4", 2)
	b.Starred = true

	got := Derive(Inputs{
		Clips:        []library.Clip{a, b},
		CollectionID: StarredCollectionID,
	})
	if !equalIDs(ids(got), "b") {
		t.Fatalf("starred scope returned %v, want [b]", ids(got))
	}
}

func TestCollectionMembershipScope(t *testing.T) {
	in := Inputs{
		Clips: []library.Clip{
			clip("a", "a.mp4", 3),
			clip("b", "b.mp4", 2),
			clip("c", "c.mp4", 1),
		},
		CollectionID:      "col1",
		CollectionClipIDs: []string{"a", "c"},
		Sort:              library.SortConfig{Field: library.SortByRecordedAt, Dir: library.SortDesc},
	}
	if got := ids(Derive(in)); !equalIDs(got, "a", "c") {
		t.Fatalf("collection scope returned %v, want [a c]", got)
	}
}

func TestSmartFolderScope(t *testing.T) {
	small := clip("small", "small.mp4", 1)
	small.FileSize = 10
	big := clip("big", "big.mp4", 2)
	big.FileSize = 10_000_000

	in := Inputs{
		Clips:             []library.Clip{small, big},
		SmartFolderActive: true,
		SmartFolderRules:  `[{"field":"fileSize","operator":"gt","value":1000}]`,
	}
	if got := ids(Derive(in)); !equalIDs(got, "big") {
		t.Fatalf("smart folder scope returned %v, want [big]", got)
	}
}

func TestSmartFolderWithBrokenRulesShowsAll(t *testing.T) {
	in := Inputs{
		Clips:             []library.Clip{clip("a", "a.mp4", 2), clip("b", "b.mp4", 1)},
		SmartFolderActive: true,
		SmartFolderRules:  "not json at all",
	}
	if got := Derive(in); len(got) != 2 {
		t.Fatalf("broken rules should fail open, got %d of 2 clips", len(got))
	}
}

func TestSemanticModeRestrictsAndRanks(t *testing.T) {
	in := Inputs{
		Clips: []library.Clip{
			clip("x", "x.mp4", 1),
			clip("y", "y.mp4", 2),
			clip("z", "z.mp4", 3),
		},
		SemanticMode: true,
		Ranked: []library.SearchResult{
			{ClipID: "x", Score: 0.9},
			{ClipID: "y", Score: 0.2},
		},
		// manual sort must be ignored in semantic mode
		Sort: library.SortConfig{Field: library.SortByFilename, Dir: library.SortDesc},
	}

	got := ids(Derive(in))
	if !equalIDs(got, "x", "y") {
		t.Fatalf("semantic mode returned %v, want exactly [x y]", got)
	}
}

func TestSemanticModeWithoutResultsFallsThrough(t *testing.T) {
	in := Inputs{
		Clips:        []library.Clip{clip("a", "a.mp4", 1), clip("b", "b.mp4", 2)},
		SemanticMode: true,
		Query:        "a.mp4",
	}
	// no ranked results yet: text search is skipped in semantic mode,
	// so the full (scoped) set comes back
	if got := Derive(in); len(got) != 2 {
		t.Fatalf("semantic mode with no results returned %d clips, want 2", len(got))
	}
}

func TestTextSearchMatchesFilenameDescriptionAndTagNames(t *testing.T) {
	byName := clip("n", "Epic_Clutch.mp4", 1)
	byDesc := clip("d", "d.mp4", 2)
	byDesc.Description = "that epic round"
	byTag := clip("t", "t.mp4", 3)
	byTag.Tags = []string{"tag1"}
	miss := clip("m", "m.mp4", 4)

	in := Inputs{
		Clips:    []library.Clip{byName, byDesc, byTag, miss},
		TagNames: map[string]string{"tag1": "Epic Moments"},
		Query:    "  EPIC ",
	}

	got := ids(Derive(in))
	want := map[string]bool{"n": true, "d": true, "t": true}
	if len(got) != 3 {
		t.Fatalf("text search returned %v, want n, d, t", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected clip %q in result", id)
		}
	}
}

func TestAttributeFiltersCompose(t *testing.T) {
	mk := func(id string, at int64, src string, starred bool, tags ...string) library.Clip {
		c := clip(id, id+".mp4", at)
		c.DirSource = src
		c.Starred = starred
		c.Tags = tags
		return c
	}

	clips := []library.Clip{
		mk("a", 100, "root", true, "t1", "t2"),
		mk("b", 200, "root", true, "t1"),
		mk("c", 150, "captures", true, "t1", "t2"),
		mk("d", 150, "root", false, "t1", "t2"),
		mk("e", 150, "root", true, "t1", "t2"),
	}

	in := Inputs{
		Clips: clips,
		Filter: library.ClipFilter{
			DateFrom:  ptrI(120),
			DateTo:    ptrI(180),
			Tags:      []string{"t1", "t2"},
			DirSource: "root",
			Starred:   ptrB(true),
		},
	}

	if got := ids(Derive(in)); !equalIDs(got, "e") {
		t.Fatalf("composed filters returned %v, want [e]", got)
	}
}

func TestStarredTristateFalse(t *testing.T) {
	a := clip("a", "a.mp4", 1)
	a.Starred = true
	b := clip("b", "b.mp4", 2)

	in := Inputs{
		Clips:  []library.Clip{a, b},
		Filter: library.ClipFilter{Starred: ptrB(false)},
	}
	if got := ids(Derive(in)); !equalIDs(got, "b") {
		t.Fatalf("starred=false filter returned %v, want [b]", got)
	}
}

func TestSortFilenameLocaleAwareCaseInsensitive(t *testing.T) {
	in := Inputs{
		Clips: []library.Clip{
			clip("1", "b.mp4", 1),
			clip("2", "A.mp4", 2),
		},
		Sort: library.SortConfig{Field: library.SortByFilename, Dir: library.SortAsc},
	}
	got := Derive(in)
	if got[0].Filename != "A.mp4" || got[1].Filename != "b.mp4" {
		t.Fatalf("got order [%s %s], want [A.mp4 b.mp4]", got[0].Filename, got[1].Filename)
	}
}

func TestNilDurationSortsLastBothDirections(t *testing.T) {
	known := clip("known", "known.mp4", 1)
	known.DurationSecs = ptrF(12)
	unknown := clip("unknown", "unknown.mp4", 2)

	for _, dir := range []library.SortDir{library.SortAsc, library.SortDesc} {
		in := Inputs{
			Clips: []library.Clip{unknown, known},
			Sort:  library.SortConfig{Field: library.SortByDuration, Dir: dir},
		}
		got := ids(Derive(in))
		if !equalIDs(got, "known", "unknown") {
			t.Errorf("dir=%s: got %v, want unknown duration last", dir, got)
		}
	}
}

func TestSortIsStable(t *testing.T) {
	a := clip("a", "same.mp4", 100)
	b := clip("b", "same.mp4", 100)
	c := clip("c", "same.mp4", 100)

	in := Inputs{
		Clips: []library.Clip{a, b, c},
		Sort:  library.SortConfig{Field: library.SortByRecordedAt, Dir: library.SortDesc},
	}
	if got := ids(Derive(in)); !equalIDs(got, "a", "b", "c") {
		t.Fatalf("equal keys reordered: %v", got)
	}
}

func BenchmarkDerive(b *testing.B) {
	clips := make([]library.Clip, 5000)
	for i := range clips {
		clips[i] = clip(
			string(rune('a'+i%26))+"-clip",
			"2026-01-28 18-40-28.mp4",
			int64(1700000000+i),
		)
	}
	in := Inputs{
		Clips: clips,
		Query: "18-40",
		Sort:  library.DefaultSort,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Derive(in)
	}
}
