// Package pipeline derives the ordered clip list the views render.
//
// Derive composes four orthogonal selection mechanisms into one
// deterministic result: collection or smart folder scoping, semantic
// search ranking, free-text matching, and attribute filters, followed
// by a stable sort. It is a pure function of an explicit input snapshot
// and is recomputed wholesale on every dependency change; at library
// scale (thousands of clips) a rebuild is cheaper than maintaining
// incremental indices.
package pipeline
