package virtualize

import "sort"

// Group is one calendar-day section of the timeline, holding the
// indices of its members in the derived list.
type Group struct {
	Day     string // "2006-01-02", UTC
	Indices []int
}

// Timeline is the grouped layout strategy. Section heights start as
// estimates from member counts and are refined with measured heights
// as sections render; offsets stay monotonically increasing either way.
type Timeline struct {
	HeaderHeight    float64
	RowHeight       float64
	ColumnsEstimate int
	Overscan        int

	groups   []Group
	heights  []float64
	measured []bool
}

// NewTimeline groups the derived list by UTC calendar day, newest day
// first. recordedAt holds the epoch-seconds timestamp of each item in
// derived order; members keep that order within their day.
func NewTimeline(recordedAt []int64) *Timeline {
	t := &Timeline{
		HeaderHeight:    50,
		RowHeight:       150,
		ColumnsEstimate: 3,
		Overscan:        2,
	}

	byDay := make(map[string][]int)
	for i, at := range recordedAt {
		key := dayKey(at)
		byDay[key] = append(byDay[key], i)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	t.groups = make([]Group, len(days))
	t.heights = make([]float64, len(days))
	t.measured = make([]bool, len(days))
	for i, day := range days {
		t.groups[i] = Group{Day: day, Indices: byDay[day]}
		t.heights[i] = t.estimate(len(byDay[day]))
	}
	return t
}

// estimate predicts a section's height from its member count before it
// has ever rendered.
func (t *Timeline) estimate(members int) float64 {
	rows := (members + t.ColumnsEstimate - 1) / t.ColumnsEstimate
	return t.HeaderHeight + float64(rows)*t.RowHeight
}

// Groups returns the day sections in render order.
func (t *Timeline) Groups() []Group { return t.groups }

// Len returns the number of day sections.
func (t *Timeline) Len() int { return len(t.groups) }

// Measure records the rendered height of section i. Subsequent windows
// use the measurement instead of the estimate. Non-positive heights are
// ignored.
func (t *Timeline) Measure(i int, height float64) {
	if i < 0 || i >= len(t.heights) || height <= 0 {
		return
	}
	t.heights[i] = height
	t.measured[i] = true
}

// Height returns the current height of section i, measured or estimated.
func (t *Timeline) Height(i int) float64 { return t.heights[i] }

// TotalHeight is the current scroll extent.
func (t *Timeline) TotalHeight() float64 {
	var total float64
	for _, h := range t.heights {
		total += h
	}
	return total
}

// TimelineWindow is the materialization plan for a timeline viewport.
type TimelineWindow struct {
	Groups       Range
	GroupOffsets []float64 // offset of each group in Groups
	TotalHeight  float64
}

// Window computes which sections intersect the viewport, with overscan,
// by walking the cumulative offsets of the current heights.
func (t *Timeline) Window(vp Viewport) TimelineWindow {
	n := len(t.groups)
	if n == 0 || vp.Height <= 0 {
		return TimelineWindow{Groups: Range{0, -1}, TotalHeight: t.TotalHeight()}
	}

	top := vp.ScrollTop
	bottom := vp.ScrollTop + vp.Height

	first, last := -1, -1
	var offset float64
	offsets := make([]float64, n)
	for i, h := range t.heights {
		offsets[i] = offset
		if first == -1 && offset+h > top {
			first = i
		}
		if offset < bottom {
			last = i
		}
		offset += h
	}
	if first == -1 {
		first = n - 1
	}

	r := clamp(Range{Start: first, End: last}, t.Overscan, n)
	w := TimelineWindow{Groups: r, TotalHeight: offset}
	w.GroupOffsets = make([]float64, r.Len())
	for i := range w.GroupOffsets {
		w.GroupOffsets[i] = offsets[r.Start+i]
	}
	return w
}
