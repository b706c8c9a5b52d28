// Package workers sizes worker pools from the CPU count visible to the
// process. GOMAXPROCS tracks container CPU limits, so pools scale with
// the actual allocation instead of the host's core count. The
// SCAN_WORKERS environment variable overrides all heuristics.
package workers
