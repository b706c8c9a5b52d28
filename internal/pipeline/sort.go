package pipeline

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"clip-library/internal/library"
)

// collator orders filenames the way a file browser does: locale-aware
// and case-insensitive, so "A.mp4" sorts before "b.mp4".
var collator = collate.New(language.Und, collate.IgnoreCase)

// sortClips orders clips by the configured field and direction.
//
// The sort is stable, and a clip with an undefined value for the sort
// field goes after every clip with a defined value, in both directions.
func sortClips(clips []library.Clip, cfg library.SortConfig) {
	if cfg.Field == "" {
		cfg = library.DefaultSort
	}
	asc := cfg.Dir != library.SortDesc

	stableSortBy(clips, func(a, b *library.Clip) bool {
		cmp, aNil, bNil := compareField(a, b, cfg.Field)
		if aNil || bNil {
			// Undefined sorts last regardless of direction.
			return !aNil && bNil
		}
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})
}

// compareField compares one sortable attribute of two clips. The nil
// flags report which side has no defined value for the field.
func compareField(a, b *library.Clip, field library.SortField) (cmp int, aNil, bNil bool) {
	switch field {
	case library.SortByFilename:
		return collator.CompareString(a.Filename, b.Filename), false, false
	case library.SortByFileSize:
		return compareInt64(a.FileSize, b.FileSize), false, false
	case library.SortByDuration:
		if a.DurationSecs == nil || b.DurationSecs == nil {
			return 0, a.DurationSecs == nil, b.DurationSecs == nil
		}
		switch {
		case *a.DurationSecs < *b.DurationSecs:
			return -1, false, false
		case *a.DurationSecs > *b.DurationSecs:
			return 1, false, false
		}
		return 0, false, false
	default: // recordedAt
		return compareInt64(a.RecordedAt, b.RecordedAt), false, false
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func stableSortBy(clips []library.Clip, less func(a, b *library.Clip) bool) {
	sort.SliceStable(clips, func(i, j int) bool {
		return less(&clips[i], &clips[j])
	})
}
