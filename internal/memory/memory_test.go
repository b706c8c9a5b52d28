package memory

import (
	"runtime/debug"
	"testing"
	"time"
)

func TestConfigureFromEnvUnset(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	result := ConfigureFromEnv()
	if result.Configured {
		t.Error("configured with no limit in environment")
	}
	if result.Source != "none" {
		t.Errorf("source = %q", result.Source)
	}
}

func TestConfigureFromEnvContainerLimit(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB
	t.Setenv("MEMORY_RATIO", "0.5")
	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	result := ConfigureFromEnv()
	if !result.Configured {
		t.Fatal("not configured")
	}
	if result.Source != "MEMORY_LIMIT" {
		t.Errorf("source = %q", result.Source)
	}
	if result.GoMemLimit != 536870912 {
		t.Errorf("GoMemLimit = %d, want 536870912", result.GoMemLimit)
	}
}

func TestConfigureFromEnvBadValues(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "lots")

	if result := ConfigureFromEnv(); result.Configured {
		t.Error("configured from unparseable limit")
	}
}

func TestNewMonitorWithoutLimit(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	debug.SetMemoryLimit(9223372036854775807) // effectively unlimited
	defer debug.SetMemoryLimit(prev)

	if m := NewMonitor(DefaultMonitorConfig()); m != nil {
		t.Error("monitor created with no effective limit")
	}
}

func TestNilMonitorIsInert(t *testing.T) {
	var m *Monitor
	if m.Paused() {
		t.Error("nil monitor reports paused")
	}

	done := make(chan struct{})
	go func() {
		m.Wait()
		m.Start()
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nil monitor blocked")
	}
}

func TestMonitorThreshold(t *testing.T) {
	m := NewMonitor(MonitorConfig{
		LimitBytes:    1 << 40, // far above any real heap in a test
		HighWaterMark: 0.8,
		CheckInterval: time.Millisecond,
	})
	if m == nil {
		t.Fatal("monitor not created")
	}

	m.sample()
	if m.Paused() {
		t.Error("paused with heap far below threshold")
	}

	// Force the threshold under current usage and re-sample.
	m.threshold = 1
	m.sample()
	if !m.Paused() {
		t.Error("not paused with threshold below heap usage")
	}
}
