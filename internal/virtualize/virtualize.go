package virtualize

import (
	"math"
	"time"
)

// Viewport describes the visible region of a scroll container.
type Viewport struct {
	ScrollTop float64
	Height    float64
	Width     float64
}

// Range is an inclusive index range. A negative Start/End pair means
// the range is empty.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool { return r.Start > r.End || r.End < 0 }

// Len returns the number of indices the range covers.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// clamp expands a range by overscan on each side and clamps it to
// [0, n-1]. The result never skips an index that intersects the
// unexpanded range.
func clamp(r Range, overscan, n int) Range {
	if n == 0 {
		return Range{Start: 0, End: -1}
	}
	r.Start -= overscan
	r.End += overscan
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n-1 {
		r.End = n - 1
	}
	return r
}

// UniformWindow computes the visible index range for n items of one
// fixed height, plus overscan, clamped to [0, n-1].
func UniformWindow(n int, itemHeight float64, vp Viewport, overscan int) Range {
	if n == 0 || itemHeight <= 0 || vp.Height <= 0 {
		return Range{Start: 0, End: -1}
	}
	first := int(math.Floor(vp.ScrollTop / itemHeight))
	last := int(math.Ceil((vp.ScrollTop+vp.Height)/itemHeight)) - 1
	return clamp(Range{Start: first, End: last}, overscan, n)
}

// Grid is the uniform-cell layout strategy: items flow into rows of a
// column count derived from the available width, and every row has the
// same estimated height.
type Grid struct {
	MinCardWidth float64
	Gap          float64
	RowHeight    float64
	Overscan     int
}

// DefaultGrid returns the grid geometry the card view uses.
func DefaultGrid() Grid {
	return Grid{MinCardWidth: 220, Gap: 14, RowHeight: 210, Overscan: 3}
}

// Columns derives the column count from the available width. At least
// one column is always laid out, however narrow the viewport.
func (g Grid) Columns(width float64) int {
	if g.MinCardWidth+g.Gap <= 0 {
		return 1
	}
	cols := int(math.Floor((width + g.Gap) / (g.MinCardWidth + g.Gap)))
	if cols < 1 {
		cols = 1
	}
	return cols
}

// GridWindow is the materialization plan for a grid viewport.
type GridWindow struct {
	Columns     int
	Rows        Range     // row indices to render
	Items       Range     // item indices to render
	RowOffsets  []float64 // offset of each row in Rows, top of content = 0
	TotalHeight float64
}

// Window computes the minimal row and item ranges that must be
// materialized for n items under the given viewport, with overscan.
func (g Grid) Window(n int, vp Viewport) GridWindow {
	cols := g.Columns(vp.Width)
	if n == 0 {
		return GridWindow{Columns: cols, Rows: Range{0, -1}, Items: Range{0, -1}}
	}
	rowCount := (n + cols - 1) / cols
	total := float64(rowCount) * g.RowHeight

	rows := UniformWindow(rowCount, g.RowHeight, vp, g.Overscan)
	w := GridWindow{Columns: cols, Rows: rows, TotalHeight: total}
	if rows.Empty() {
		w.Items = Range{0, -1}
		return w
	}

	w.RowOffsets = make([]float64, rows.Len())
	for i := range w.RowOffsets {
		w.RowOffsets[i] = float64(rows.Start+i) * g.RowHeight
	}

	first := rows.Start * cols
	last := (rows.End+1)*cols - 1
	if last > n-1 {
		last = n - 1
	}
	w.Items = Range{Start: first, End: last}
	return w
}

// dayKey formats an epoch-seconds timestamp as a UTC calendar day.
func dayKey(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02")
}
