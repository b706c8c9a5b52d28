package pipeline

import (
	"strings"

	"clip-library/internal/library"
	"clip-library/internal/rules"
)

// StarredCollectionID is the pseudo-collection restricting the working
// set to starred clips. It has no membership table.
const StarredCollectionID = "__starred"

// Inputs is the complete state the pipeline derives from. Derive is a
// pure function of this struct: same inputs, same output list.
type Inputs struct {
	Clips    []library.Clip
	TagNames map[string]string // tag id -> name, for text search

	// Scope. A collection takes precedence over a smart folder.
	CollectionID      string // "" for none, StarredCollectionID for the pseudo-collection
	CollectionClipIDs []string
	SmartFolderActive bool
	SmartFolderRules  string // serialized rule set

	// Search.
	Query        string
	SemanticMode bool
	Ranked       []library.SearchResult

	// Attribute filters and ordering.
	Filter library.ClipFilter
	Sort   library.SortConfig
}

// Derive computes the exact ordered list of clips to render.
//
// Stages run in a fixed order: scope, semantic short-circuit, text
// search, attribute filters, sort. Semantic mode returns early once
// ranked results restrict and order the set; manual sort and the
// remaining filters do not apply there. The whole derivation is
// side-effect free and total: malformed scope or filter state narrows
// nothing rather than failing.
func Derive(in Inputs) []library.Clip {
	result := make([]library.Clip, len(in.Clips))
	copy(result, in.Clips)

	result = applyScope(result, in)

	if in.SemanticMode && len(in.Ranked) > 0 {
		return rankBySemanticScore(result, in.Ranked)
	}

	if q := strings.ToLower(strings.TrimSpace(in.Query)); q != "" && !in.SemanticMode {
		result = applyTextSearch(result, q, in.TagNames)
	}

	result = applyAttributeFilters(result, in.Filter)

	sortClips(result, in.Sort)
	return result
}

func applyScope(clips []library.Clip, in Inputs) []library.Clip {
	switch {
	case in.CollectionID == StarredCollectionID:
		return keep(clips, func(c *library.Clip) bool { return c.Starred })

	case in.CollectionID != "" && len(in.CollectionClipIDs) > 0:
		members := make(map[string]bool, len(in.CollectionClipIDs))
		for _, id := range in.CollectionClipIDs {
			members[id] = true
		}
		return keep(clips, func(c *library.Clip) bool { return members[c.ID] })

	case in.SmartFolderActive:
		return rules.EvaluateSerialized(clips, in.SmartFolderRules)
	}
	return clips
}

// rankBySemanticScore restricts to ranked ids and orders by descending
// score. Scores are relative ordering keys only; ties keep input order.
func rankBySemanticScore(clips []library.Clip, ranked []library.SearchResult) []library.Clip {
	scores := make(map[string]float32, len(ranked))
	for _, r := range ranked {
		scores[r.ClipID] = r.Score
	}
	result := keep(clips, func(c *library.Clip) bool {
		_, ok := scores[c.ID]
		return ok
	})
	stableSortBy(result, func(a, b *library.Clip) bool {
		return scores[a.ID] > scores[b.ID]
	})
	return result
}

func applyTextSearch(clips []library.Clip, q string, tagNames map[string]string) []library.Clip {
	return keep(clips, func(c *library.Clip) bool {
		if strings.Contains(strings.ToLower(c.Filename), q) {
			return true
		}
		if strings.Contains(strings.ToLower(c.Description), q) {
			return true
		}
		for _, tid := range c.Tags {
			if name, ok := tagNames[tid]; ok && strings.Contains(strings.ToLower(name), q) {
				return true
			}
		}
		return false
	})
}

func applyAttributeFilters(clips []library.Clip, f library.ClipFilter) []library.Clip {
	if f.DateFrom != nil {
		from := *f.DateFrom
		clips = keep(clips, func(c *library.Clip) bool { return c.RecordedAt >= from })
	}
	if f.DateTo != nil {
		to := *f.DateTo
		clips = keep(clips, func(c *library.Clip) bool { return c.RecordedAt <= to })
	}
	if len(f.Tags) > 0 {
		clips = keep(clips, func(c *library.Clip) bool {
			for _, tid := range f.Tags {
				if !c.HasTag(tid) {
					return false
				}
			}
			return true
		})
	}
	if f.DirSource != "" && f.DirSource != "all" {
		clips = keep(clips, func(c *library.Clip) bool { return c.DirSource == f.DirSource })
	}
	if f.Starred != nil {
		want := *f.Starred
		clips = keep(clips, func(c *library.Clip) bool { return c.Starred == want })
	}
	return clips
}

// keep filters in place, preserving order.
func keep(clips []library.Clip, pred func(*library.Clip) bool) []library.Clip {
	out := clips[:0]
	for i := range clips {
		if pred(&clips[i]) {
			out = append(out, clips[i])
		}
	}
	return out
}
