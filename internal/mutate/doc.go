// Package mutate coordinates optimistic clip mutations: patch the
// in-memory snapshot first, persist second, revert from the captured
// pre-image on failure. Bulk operations are all or nothing.
package mutate
