package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Profile describes how a pool's work splits between CPU and I/O. The
// value is the number of workers per available CPU.
type Profile float64

const (
	// CPUBound suits pure computation, one worker per CPU.
	CPUBound Profile = 1.0

	// Mixed suits the thumbnail pipeline: ffmpeg frame extraction is
	// CPU-heavy but each job also waits on disk reads.
	Mixed Profile = 1.5

	// IOBound suits work dominated by disk or network waits.
	IOBound Profile = 2.0
)

// PoolSize returns the worker count for a pool with the given profile,
// capped at max (0 means uncapped). GOMAXPROCS already reflects
// container CPU limits, so the count scales with what the container
// actually has.
//
// SCAN_WORKERS overrides the computed count, still subject to the cap.
func PoolSize(profile Profile, max int) int {
	if override := os.Getenv("SCAN_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			return capped(n, max)
		}
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * float64(profile))
	if n < 1 {
		n = 1
	}
	return capped(n, max)
}

func capped(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}
