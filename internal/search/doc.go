// Package search implements semantic clip search: a brute-force cosine
// ranker over stored embeddings and a debounced client that owns the
// query lifecycle. Results flow into the pipeline as an id-to-score
// ranking, never as a separate list to merge.
package search
