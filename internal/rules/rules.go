package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"clip-library/internal/library"
)

// Rule fields.
const (
	FieldStarred    = "starred"
	FieldFilename   = "filename"
	FieldDirSource  = "dirSource"
	FieldFileSize   = "fileSize"
	FieldDuration   = "durationSecs"
	FieldRecordedAt = "recordedAt"
	FieldTag        = "tag"
)

// Rule operators.
const (
	OpIs       = "is"
	OpContains = "contains"
	OpEquals   = "equals"
	OpGt       = "gt"
	OpLt       = "lt"
	OpBetween  = "between"
	OpHas      = "has"
)

// Rule is one predicate in a smart folder's rule set. Value is loosely
// typed in the persisted form and coerced per field at evaluation time;
// Value2 is present only for the between operator.
type Rule struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Value2   *float64    `json:"value2,omitempty"`
}

// Parse decodes a serialized rule sequence. An error here is expected to
// be handled permissively by the caller: an unparseable rule set selects
// everything rather than nothing.
func Parse(serialized string) ([]Rule, error) {
	var rs []Rule
	if err := json.Unmarshal([]byte(serialized), &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return rs, nil
}

// Matches reports whether a clip satisfies a single rule.
//
// Unknown fields match (permissive); a known field paired with an
// operator outside its legal set does not. The function is total: it
// never fails, whatever the rule carries.
func Matches(clip *library.Clip, rule Rule) bool {
	switch rule.Field {
	case FieldStarred:
		return rule.Operator == OpIs && clip.Starred == asBool(rule.Value)

	case FieldFilename:
		switch rule.Operator {
		case OpContains:
			return strings.Contains(strings.ToLower(clip.Filename), strings.ToLower(asString(rule.Value)))
		case OpEquals:
			return strings.EqualFold(clip.Filename, asString(rule.Value))
		}
		return false

	case FieldDirSource:
		return rule.Operator == OpEquals && strings.EqualFold(clip.DirSource, asString(rule.Value))

	case FieldFileSize:
		return matchNumeric(float64(clip.FileSize), rule, true)

	case FieldDuration:
		// A duration rule never matches a clip with unknown duration.
		if clip.DurationSecs == nil {
			return false
		}
		return matchNumeric(*clip.DurationSecs, rule, true)

	case FieldRecordedAt:
		return matchNumeric(float64(clip.RecordedAt), rule, false)

	case FieldTag:
		return rule.Operator == OpHas && clip.HasTag(asString(rule.Value))

	default:
		// Unknown field: treat as matching so a rule set written by a
		// newer version degrades to showing more, not less.
		return true
	}
}

// EvaluateAll filters clips to those satisfying every rule, preserving
// input order. An empty rule set passes everything through.
func EvaluateAll(clips []library.Clip, rs []Rule) []library.Clip {
	if len(rs) == 0 {
		return clips
	}
	out := make([]library.Clip, 0, len(clips))
	for i := range clips {
		matched := true
		for _, r := range rs {
			if !Matches(&clips[i], r) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, clips[i])
		}
	}
	return out
}

// EvaluateSerialized evaluates a smart folder's persisted rule text.
// A rule set that fails to parse selects all clips (fail-open).
func EvaluateSerialized(clips []library.Clip, serialized string) []library.Clip {
	rs, err := Parse(serialized)
	if err != nil {
		return clips
	}
	return EvaluateAll(clips, rs)
}

// matchNumeric handles gt/lt and, when allowed, inclusive between.
func matchNumeric(actual float64, rule Rule, allowBetween bool) bool {
	v, ok := asNumber(rule.Value)
	if !ok {
		return false
	}
	switch rule.Operator {
	case OpGt:
		return actual > v
	case OpLt:
		return actual < v
	case OpBetween:
		if !allowBetween {
			return false
		}
		upper := v
		if rule.Value2 != nil {
			upper = *rule.Value2
		}
		return actual >= v && actual <= upper
	}
	return false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	}
	return false
}
