// Package filesystem wraps stat and open with retry logic for stale
// NFS file handles. Clip libraries commonly sit on network mounts, and
// a re-exported directory can briefly hand out ESTALE for paths that
// are perfectly valid; a short retry rides that out instead of dropping
// clips from a scan.
package filesystem

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"clip-library/internal/logging"
	"clip-library/internal/metrics"
)

// Dir is an http.FileSystem over a directory whose opens retry stale
// handles. Used to serve thumbnails and exports off network mounts.
type Dir string

// Open implements http.FileSystem.
func (d Dir) Open(name string) (http.File, error) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		return nil, errors.New("invalid character in file path")
	}
	full := filepath.Join(string(d), filepath.FromSlash(path.Clean("/"+name)))
	return Open(full)
}

// RetryConfig controls how stale-handle errors are retried.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry behavior used across the
// scanner. Three quick attempts cover the common NFS re-export window
// without stalling a scan on a genuinely broken mount.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

type volumeMount struct {
	prefix string // absolute path with trailing slash
	name   string // metric label, e.g. "library"
}

// volumes maps path prefixes to mount names for metric labels, sorted
// longest prefix first. Set once at startup before the scanner runs.
var volumes []volumeMount

// SetVolumes registers the named directories so retry metrics can be
// attributed to the mount they happened on.
func SetVolumes(mounts map[string]string) {
	resolved := make([]volumeMount, 0, len(mounts))
	for name, path := range mounts {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !strings.HasSuffix(abs, "/") {
			abs += "/"
		}
		resolved = append(resolved, volumeMount{prefix: abs, name: name})
	}
	sort.Slice(resolved, func(i, j int) bool {
		return len(resolved[i].prefix) > len(resolved[j].prefix)
	})
	volumes = resolved
}

// volumeFor returns the registered mount name containing path, or
// "unknown" when the path is outside every registered volume.
func volumeFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}
	for _, v := range volumes {
		if strings.HasPrefix(abs+"/", v.prefix) {
			return v.name
		}
	}
	return "unknown"
}

// isStaleHandle reports whether err is an NFS stale file handle error.
// Anything else is not worth retrying.
func isStaleHandle(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// Stat is os.Stat with stale-handle retries using the default config.
func Stat(path string) (os.FileInfo, error) {
	return StatRetry(path, DefaultRetryConfig())
}

// Open is os.Open with stale-handle retries using the default config.
func Open(path string) (*os.File, error) {
	return OpenRetry(path, DefaultRetryConfig())
}

// StatRetry performs os.Stat, retrying stale file handles with
// exponential backoff.
func StatRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := retry("stat", path, config, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	return info, err
}

// OpenRetry performs os.Open, retrying stale file handles with
// exponential backoff.
func OpenRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := retry("open", path, config, func() error {
		var openErr error
		file, openErr = os.Open(path)
		return openErr
	})
	return file, err
}

func retry(op, path string, config RetryConfig, fn func() error) error {
	volume := volumeFor(path)
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
			}
			return nil
		}
		lastErr = err

		if !isStaleHandle(err) {
			return err
		}
		metrics.FilesystemStaleErrors.WithLabelValues(op, volume).Inc()

		if attempt < config.MaxAttempts {
			logging.Debug("%s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxAttempts)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxAttempts, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	return lastErr
}
