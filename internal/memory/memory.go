// Package memory configures the Go soft memory limit from container
// limits and provides backpressure for the thumbnail pipeline. Decoding
// video frames and resizing stills is allocation-heavy; without a limit
// a large backfill can push the container past its cgroup and get the
// process OOM-killed mid-scan.
package memory

import (
	"math"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"clip-library/internal/logging"
	"clip-library/internal/metrics"
)

// defaultHeapRatio is the share of the container limit given to the Go
// heap. The remainder stays free for ffmpeg child processes.
const defaultHeapRatio = 0.85

// ConfigResult reports how the memory limit was configured.
type ConfigResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"
	ContainerLimit int64
	GoMemLimit     int64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit.
// Call early in main, before significant allocations.
//
// GOMEMLIMIT takes precedence when set. Otherwise MEMORY_LIMIT (bytes,
// typically injected via the Kubernetes Downward API) is scaled by
// MEMORY_RATIO (default 0.85) and applied.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		limit := debug.SetMemoryLimit(-1)
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		if limit > 0 && limit < math.MaxInt64 {
			return ConfigResult{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: limit}
		}
		return ConfigResult{Source: "GOMEMLIMIT"}
	}

	containerLimit, err := strconv.ParseInt(os.Getenv("MEMORY_LIMIT"), 10, 64)
	if err != nil || containerLimit <= 0 {
		if env := os.Getenv("MEMORY_LIMIT"); env != "" {
			logging.Warn("Ignoring unparseable MEMORY_LIMIT %q", env)
		}
		return ConfigResult{Source: "none"}
	}

	ratio := defaultHeapRatio
	if env := os.Getenv("MEMORY_RATIO"); env != "" {
		if r, err := strconv.ParseFloat(env, 64); err == nil && r > 0 && r <= 1 {
			ratio = r
		} else {
			logging.Warn("MEMORY_RATIO %q out of range, using %.2f", env, defaultHeapRatio)
		}
	}

	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)
	metrics.MemoryLimitBytes.Set(float64(goLimit))
	logging.Info("Configured GOMEMLIMIT: %d MiB (%.0f%% of %d MiB container limit)",
		goLimit>>20, ratio*100, containerLimit>>20)

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goLimit,
	}
}

// MonitorConfig controls the backpressure monitor.
type MonitorConfig struct {
	// LimitBytes is the heap budget. Zero means use GOMEMLIMIT, and if
	// that is unset too the monitor never throttles.
	LimitBytes int64

	// HighWaterMark is the fraction of the limit at which workers pause.
	HighWaterMark float64

	// CheckInterval is how often heap usage is sampled.
	CheckInterval time.Duration
}

// DefaultMonitorConfig returns the monitor settings used by the
// thumbnail pipeline.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		HighWaterMark: 0.8,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and pauses callers while usage sits above
// the high-water mark. A nil Monitor never throttles, so callers can
// hold one unconditionally.
type Monitor struct {
	limit     int64
	threshold uint64
	interval  time.Duration
	stopChan  chan struct{}

	mu     sync.RWMutex
	paused bool
}

// NewMonitor creates a monitor. Returns nil when no limit is available,
// which disables throttling entirely.
func NewMonitor(config MonitorConfig) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
			limit = l
		}
	}
	if limit <= 0 {
		logging.Debug("No memory limit configured, throttling disabled")
		return nil
	}
	return &Monitor{
		limit:     limit,
		threshold: uint64(float64(limit) * config.HighWaterMark),
		interval:  config.CheckInterval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins periodic sampling.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

// Stop ends sampling and releases any paused callers.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	close(m.stopChan)
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-m.stopChan:
			m.mu.Lock()
			m.paused = false
			m.mu.Unlock()
			return
		}
	}
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	metrics.MemoryHeapBytes.Set(float64(stats.HeapAlloc))

	over := stats.HeapAlloc >= m.threshold

	m.mu.Lock()
	wasPaused := m.paused
	m.paused = over
	m.mu.Unlock()

	if over && !wasPaused {
		metrics.MemoryThrottleEvents.Inc()
		logging.Warn("Heap %d MiB above %d MiB high-water mark, pausing thumbnail workers",
			stats.HeapAlloc>>20, m.threshold>>20)
	} else if !over && wasPaused {
		logging.Info("Heap back under high-water mark, resuming thumbnail workers")
	}
}

// Paused reports whether callers should hold off on new work.
func (m *Monitor) Paused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Wait blocks while the monitor is paused, polling until usage drops
// back under the high-water mark or the stop channel closes.
func (m *Monitor) Wait() {
	if m == nil {
		return
	}
	for m.Paused() {
		select {
		case <-time.After(m.interval):
		case <-m.stopChan:
			return
		}
	}
}
