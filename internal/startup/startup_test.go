package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv("LIBRARY_DIR", filepath.Join(base, "clips"))
	t.Setenv("CACHE_DIR", filepath.Join(base, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(base, "db"))
	t.Setenv("PORT", "")
	t.Setenv("METRICS_PORT", "")
	t.Setenv("SCAN_INTERVAL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q, want 9090", cfg.MetricsPort)
	}
	if cfg.ScanInterval != 30*time.Minute {
		t.Errorf("ScanInterval = %v, want 30m", cfg.ScanInterval)
	}
	if cfg.DatabasePath != filepath.Join(cfg.DatabaseDir, "library.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if !cfg.ThumbnailsEnabled {
		t.Error("thumbnails disabled with a writable cache dir")
	}
	if !cfg.ExportsEnabled {
		t.Error("exports disabled with a writable cache dir")
	}
}

func TestLoadConfigInvalidScanInterval(t *testing.T) {
	base := t.TempDir()
	t.Setenv("LIBRARY_DIR", filepath.Join(base, "clips"))
	t.Setenv("CACHE_DIR", filepath.Join(base, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(base, "db"))
	t.Setenv("SCAN_INTERVAL", "sometimes")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScanInterval != 30*time.Minute {
		t.Errorf("bad SCAN_INTERVAL not defaulted: %v", cfg.ScanInterval)
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	libDir := filepath.Join(base, "clips")
	cacheDir := filepath.Join(base, "cache")
	dbDir := filepath.Join(base, "db")
	t.Setenv("LIBRARY_DIR", libDir)
	t.Setenv("CACHE_DIR", cacheDir)
	t.Setenv("DATABASE_DIR", dbDir)
	t.Setenv("SCAN_INTERVAL", "5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{libDir, dbDir, cfg.ThumbnailDir, cfg.ExportDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
	if cfg.ScanInterval != 5*time.Minute {
		t.Errorf("ScanInterval = %v, want 5m", cfg.ScanInterval)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("STARTUP_TEST_BOOL", tc.value)
			if got := getEnvBool("STARTUP_TEST_BOOL", tc.def); got != tc.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
			}
		})
	}
}

func TestSetupOptionalDirUnwritableParent(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks are a no-op as root")
	}
	parent := t.TempDir()
	if err := os.Chmod(parent, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	if setupOptionalDir(filepath.Join(parent, "thumbs"), "thumbnails") {
		t.Error("unwritable parent reported as enabled")
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/clips", "api/clips"},
		{"/api/clips/{id}", "api/clips"},
		{"/healthz", "healthz"},
		{"/", ""},
	}
	for _, tc := range tests {
		if got := getRouteGroup(tc.path); got != tc.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
