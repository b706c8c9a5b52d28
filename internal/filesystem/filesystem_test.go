package filesystem

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestVolumeFor(t *testing.T) {
	SetVolumes(map[string]string{
		"library":    "/clips",
		"thumbnails": "/cache/thumbs",
		"cache":      "/cache",
	})
	defer SetVolumes(nil)

	tests := []struct {
		path string
		want string
	}{
		{"/clips/session/2024-01-01 10-00-00.mp4", "library"},
		{"/cache/thumbs/abc.jpg", "thumbnails"}, // longest prefix wins
		{"/cache/waveforms/abc.json", "cache"},
		{"/etc/passwd", "unknown"},
	}
	for _, tc := range tests {
		if got := volumeFor(tc.path); got != tc.want {
			t.Errorf("volumeFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestIsStaleHandle(t *testing.T) {
	if !isStaleHandle(syscall.ESTALE) {
		t.Error("ESTALE not recognized as stale")
	}
	if !isStaleHandle(&os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}) {
		t.Error("wrapped ESTALE not recognized as stale")
	}
	if isStaleHandle(syscall.ENOENT) {
		t.Error("ENOENT treated as stale")
	}
	if isStaleHandle(nil) {
		t.Error("nil error treated as stale")
	}
}

func TestStatDoesNotRetryOtherErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.mp4")

	_, err := Stat(missing)
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestStatAndOpenSucceed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 4 {
		t.Errorf("size = %d", info.Size())
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
}
