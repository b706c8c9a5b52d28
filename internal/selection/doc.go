// Package selection holds multi-select and focus state for the clip
// list. Membership is pure set semantics over clip ids; the derived
// list order plays no part here.
package selection
