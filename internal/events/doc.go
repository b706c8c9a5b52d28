// Package events is the in-process notification bus between the
// backend (scanner, mutation coordinator, ffmpeg jobs) and connected
// clients. Delivery is lossy by contract; subscribers re-derive state
// on any event rather than replaying a delta stream.
package events
