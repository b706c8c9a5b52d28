// Package database provides SQLite-backed persistence for the clip
// library: clips and their tags, collections, smart folders, semantic
// embeddings, waveform peaks, and application metadata.
//
// The connection uses WAL mode with a busy timeout so scans can write
// while the API serves reads. An RWMutex serializes writers above the
// pool; every operation takes a context and a bounded timeout. Schema
// changes are versioned through the app_meta table and applied as
// in-place migrations on open.
package database
