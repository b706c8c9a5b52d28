// Package ffmpeg wraps the ffmpeg and ffprobe binaries for the video
// operations the library offers: metadata probing, thumbnail frames,
// trim export, GIF export, compression, and waveform extraction.
//
// The binaries are detected once at startup. When either is missing
// every operation returns an unavailable error and the API advertises
// the feature as disabled, so the rest of the application runs
// normally on hosts without ffmpeg.
package ffmpeg
