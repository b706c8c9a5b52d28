// Package virtualize computes which slice of a large list must be
// materialized for a given viewport.
//
// The math is pure: a window is a function of item count, layout
// geometry, and scroll position, never of item contents. Two layout
// strategies exist, a uniform grid for the card view and a grouped
// timeline whose day sections start as count-based estimates and are
// refined with measured heights as they render.
package virtualize
