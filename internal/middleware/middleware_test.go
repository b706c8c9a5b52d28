package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d", rw.statusCode)
	}

	// Second WriteHeader is ignored.
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Error("status changed after first WriteHeader")
	}

	data := []byte("not found")
	if _, err := rw.Write(data); err != nil {
		t.Fatal(err)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("bytesWritten = %d", rw.bytesWritten)
	}
}

func TestLoggerSkips(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		skip   bool
	}{
		{"api request", "/api/clips", DefaultLoggingConfig(), false},
		{"thumbnail asset", "/thumbs/abc.jpg", DefaultLoggingConfig(), true},
		{"static when enabled", "/thumbs/abc.jpg", LoggingConfig{LogStaticFiles: true}, false},
		{"health when enabled", "/healthz", LoggingConfig{LogHealthChecks: true}, false},
		{"health when disabled", "/healthz", LoggingConfig{LogHealthChecks: false}, true},
		{"explicit skip path", "/api/events", LoggingConfig{SkipPaths: []string{"/api/events"}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldSkip(tc.path, tc.config); got != tc.skip {
				t.Errorf("shouldSkip(%q) = %v, want %v", tc.path, got, tc.skip)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"normal", "normal"},
		{"line\nbreak", "line break"},
		{"null\x00byte", "nullbyte"},
		{"ansi\x1b[31mred", "ansi[31mred"},
		{"tab\tok", "tab\tok"},
	}
	for _, tc := range tests {
		if got := sanitizeLogField(tc.in); got != tc.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "10.0.0.1:5000"
	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("remote addr ip = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("forwarded ip = %q", ip)
	}
}

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		accept      string
		compressed  bool
	}{
		{"large json", strings.Repeat(`{"id":"a"}`, 300), "application/json", "gzip", true},
		{"small json", `{"id":"a"}`, "application/json", "gzip", false},
		{"jpeg passthrough", strings.Repeat("data", 500), "image/jpeg", "gzip", false},
		{"no gzip support", strings.Repeat(`{"id":"a"}`, 300), "application/json", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tc.body))
			})

			wrapped := Compression(DefaultCompressionConfig())(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/clips", http.NoBody)
			if tc.accept != "" {
				req.Header.Set("Accept-Encoding", tc.accept)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			isCompressed := w.Header().Get("Content-Encoding") == "gzip"
			if isCompressed != tc.compressed {
				t.Fatalf("compressed = %v, want %v", isCompressed, tc.compressed)
			}

			if tc.compressed {
				gr, err := gzip.NewReader(w.Body)
				if err != nil {
					t.Fatal(err)
				}
				defer gr.Close()
				decompressed, err := io.ReadAll(gr)
				if err != nil {
					t.Fatal(err)
				}
				if string(decompressed) != tc.body {
					t.Error("decompressed content does not match original")
				}
			} else if w.Body.String() != tc.body {
				t.Error("passthrough body altered")
			}
		})
	}
}

func TestCompressionSkipsEventStream(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(strings.Repeat("data: x\n\n", 500)))
	})

	wrapped := Compression(DefaultCompressionConfig())(handler)
	req := httptest.NewRequest(http.MethodGet, "/api/events", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") == "gzip" {
		t.Error("event stream was gzipped")
	}
}

func TestCompressionMultipleSmallWrites(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		for i := 0; i < 50; i++ {
			_, _ = w.Write([]byte(strings.Repeat(`{"k":"v"}`, 10)))
		}
	})

	wrapped := Compression(DefaultCompressionConfig())(handler)
	req := httptest.NewRequest(http.MethodGet, "/api/clips", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("aggregated writes above MinSize not compressed")
	}
}

func TestMetricsWriterDuration(t *testing.T) {
	t.Run("non-streaming measures total", func(t *testing.T) {
		w := httptest.NewRecorder()
		rw := newMetricsResponseWriter(w, time.Now(), false)

		time.Sleep(5 * time.Millisecond)
		rw.WriteHeader(http.StatusOK)
		time.Sleep(5 * time.Millisecond)

		if d := rw.GetDuration(); d < 10*time.Millisecond {
			t.Errorf("duration = %v, want >= 10ms", d)
		}
	})

	t.Run("streaming measures first byte", func(t *testing.T) {
		w := httptest.NewRecorder()
		rw := newMetricsResponseWriter(w, time.Now(), true)

		time.Sleep(5 * time.Millisecond)
		_, _ = rw.Write([]byte("data"))
		time.Sleep(20 * time.Millisecond)

		if d := rw.GetDuration(); d >= 20*time.Millisecond {
			t.Errorf("duration = %v, should be time to first byte", d)
		}
	})
}

func TestIsStreamingPath(t *testing.T) {
	if !isStreamingPath("/api/events") {
		t.Error("/api/events not recognized as streaming")
	}
	if isStreamingPath("/api/clips") {
		t.Error("/api/clips treated as streaming")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/clips", "/api/clips"},
		{"/api/clips/abc-123", "/api/clips/{id}"},
		{"/api/clips/abc-123/star", "/api/clips/{id}/star"},
		{"/api/clips/star", "/api/clips/star"},
		{"/api/clips/window", "/api/clips/window"},
		{"/api/clips/tags", "/api/clips/tags"},
		{"/api/clips/abc-123/tags", "/api/clips/{id}/tags"},
		{"/api/tags/7f3b", "/api/tags/{id}"},
		{"/api/collections/xyz/clips", "/api/collections/{id}/clips"},
		{"/api/smart-folders/q1w2", "/api/smart-folders/{id}"},
		{"/thumbs/abc.jpg", "/thumbs/{file}"},
		{"/exports/abc-trim-1.mp4", "/exports/{file}"},
		{"/healthz", "/healthz"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := normalizePath(tc.path); got != tc.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestMetricsMiddlewarePreservesStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})

		wrapped := Metrics(DefaultMetricsConfig())(handler)
		req := httptest.NewRequest(http.MethodGet, "/api/clips", http.NoBody)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Code != status {
			t.Errorf("status = %d, want %d", w.Code, status)
		}
	}
}

func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/api/clips/9a8b7c6d",
		"/api/clips/9a8b7c6d/star",
		"/api/collections/abc/clips",
		"/thumbs/9a8b7c6d.jpg",
		"/healthz",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range paths {
			_ = normalizePath(path)
		}
	}
}
