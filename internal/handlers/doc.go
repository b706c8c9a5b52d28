// Package handlers implements the HTTP API: clip listing through the
// derivation pipeline, windowing for virtualized views, optimistic
// mutations, tag/collection/smart-folder management, semantic search,
// ffmpeg export jobs, and the server-sent event stream.
package handlers
