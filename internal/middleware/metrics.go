package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"clip-library/internal/metrics"
)

// metricsResponseWriter captures the status code and, for streaming
// endpoints, the time to first byte.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode      int
	headerWritten   bool
	startTime       time.Time
	firstByteTime   time.Time
	isStreamingPath bool
}

func newMetricsResponseWriter(w http.ResponseWriter, start time.Time, streaming bool) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter:  w,
		statusCode:      http.StatusOK,
		startTime:       start,
		isStreamingPath: streaming,
	}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
		rw.headerWritten = true
		if rw.isStreamingPath {
			rw.firstByteTime = time.Now()
		}
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.headerWritten = true
		if rw.isStreamingPath {
			rw.firstByteTime = time.Now()
		}
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// GetDuration returns the duration to record for this request. An
// event stream stays open as long as the client listens, so its total
// duration is meaningless; time to first byte is recorded instead.
func (rw *metricsResponseWriter) GetDuration() time.Duration {
	if rw.isStreamingPath && !rw.firstByteTime.IsZero() {
		return rw.firstByteTime.Sub(rw.startTime)
	}
	return time.Since(rw.startTime)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/healthz", "/livez", "/readyz"},
	}
}

// isStreamingPath reports whether a path serves a long-lived stream.
func isStreamingPath(path string) bool {
	return path == "/api/events" || strings.HasPrefix(path, "/api/events/")
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w, time.Now(), isStreamingPath(r.URL.Path))

			next.ServeHTTP(wrapped, r)

			duration := wrapped.GetDuration().Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// idCarriers are resource nouns whose following path segment is a
// record id.
var idCarriers = map[string]bool{
	"clips":         true,
	"tags":          true,
	"collections":   true,
	"smart-folders": true,
}

// fixedSegments are literal sub-routes that share a prefix with id
// routes and must not be rewritten.
var fixedSegments = map[string]bool{
	"star":   true,
	"window": true,
	"tags":   true,
}

// normalizePath collapses record ids and asset names so the path label
// stays low-cardinality.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/thumbs/") {
		return "/thumbs/{file}"
	}
	if strings.HasPrefix(path, "/exports/") {
		return "/exports/{file}"
	}

	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" || fixedSegments[parts[i]] {
			continue
		}
		if idCarriers[parts[i-1]] {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
