package library

// DirSource values recognized by the scanner. A clip's source is derived
// from the name of the directory it was found in.
const (
	SourceRoot     = "root"
	SourceCaptures = "captures"
)

// Clip is a single video file record with derived metadata.
// Descriptive fields are owned by the scanner; Description, Tags and
// Starred are user-editable and mutated only through the mutation
// coordinator.
type Clip struct {
	ID           string   `json:"id"`
	Filename     string   `json:"filename"`
	Path         string   `json:"path"`
	DirSource    string   `json:"dirSource"`
	RecordedAt   int64    `json:"recordedAt"`
	FileSize     int64    `json:"fileSize"`
	DurationSecs *float64 `json:"durationSecs"`
	Width        *int     `json:"width"`
	Height       *int     `json:"height"`
	ThumbPath    *string  `json:"thumbPath"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Starred      bool     `json:"starred"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// HasTag reports whether the clip carries the given tag id.
func (c *Clip) HasTag(tagID string) bool {
	for _, id := range c.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// Tag is a named label referenced by clips via identifier.
// Names are unique case-insensitively.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"createdAt"`
	ClipCount int64  `json:"clipCount"`
}

// Collection is a manually curated set of clips. ClipCount is derived
// from the membership table and is not authoritative.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	SortOrder   int    `json:"sortOrder"`
	ClipCount   int64  `json:"clipCount"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// SmartFolder is a saved, named rule set that dynamically selects clips.
// Rules holds the serialized rule sequence; see the rules package for
// its format and evaluation semantics.
type SmartFolder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Rules     string `json:"rules"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ClipFilter is the transient, UI-facing attribute filter state.
// It is recomputed per session and never persisted.
type ClipFilter struct {
	DateFrom  *int64   `json:"dateFrom"`  // epoch seconds, inclusive
	DateTo    *int64   `json:"dateTo"`    // epoch seconds, inclusive
	Tags      []string `json:"tags"`      // clip must carry every listed tag id
	Search    string   `json:"search"`    // free text, case-insensitive substring
	DirSource string   `json:"dirSource"` // "" or "all" means any source
	Starred   *bool    `json:"starred"`   // tri-state: nil means unset
}

// SortField identifies a sortable clip attribute.
type SortField string

// SortDir is a sort direction.
type SortDir string

// Sortable fields and directions.
const (
	SortByRecordedAt SortField = "recordedAt"
	SortByFilename   SortField = "filename"
	SortByFileSize   SortField = "fileSize"
	SortByDuration   SortField = "durationSecs"

	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// SortConfig pairs a sort field with a direction.
type SortConfig struct {
	Field SortField `json:"field"`
	Dir   SortDir   `json:"dir"`
}

// DefaultSort is the ordering used when no sort is configured.
var DefaultSort = SortConfig{Field: SortByRecordedAt, Dir: SortDesc}

// SearchResult is one ranked hit from the semantic search ranker.
// Score is a relative ordering key with no normalization guarantees.
type SearchResult struct {
	ClipID string  `json:"clipId"`
	Score  float32 `json:"score"`
}

// Scan phases reported in progress events.
const (
	PhaseScanning   = "scanning"
	PhaseThumbnails = "thumbnails"
	PhaseComplete   = "complete"
)

// ScanProgress reports scan and thumbnail generation progress.
type ScanProgress struct {
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Phase string `json:"phase"`
}

// ClipPatch describes a partial update to a clip's mutable fields.
// Nil fields are left untouched.
type ClipPatch struct {
	Description  *string
	Starred      *bool
	Tags         *[]string
	ThumbPath    *string
	DurationSecs *float64
	Width        *int
	Height       *int
}
