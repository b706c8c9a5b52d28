// Package rules evaluates smart folder rule sets against clip records.
//
// A rule set is an ordered sequence of {field, operator, value, value2?}
// predicates, implicitly AND-ed. Evaluation is total: malformed rules
// never raise, they simply fail to restrict. An unparseable persisted
// rule set selects every clip, a deliberate fail-open policy so a broken
// smart folder degrades to "all clips" instead of an empty library.
package rules
