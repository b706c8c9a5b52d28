// Package logging is the leveled logger used throughout the clip
// library service. Messages below the active level are dropped; the
// level comes from LOG_LEVEL (debug, info, warn, error), with DEBUG=1
// as a shortcut for the debug level.
package logging
