package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"clip-library/internal/logging"
	"clip-library/internal/metrics"
)

// Runner executes ffmpeg and ffprobe as subprocesses. All video
// operations degrade gracefully when the binaries are missing: the
// feature is reported unavailable instead of failing at call time.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
}

// Detect looks up ffmpeg and ffprobe on PATH. A Runner is returned
// either way; check Available before offering video operations.
func Detect() *Runner {
	r := &Runner{}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		r.ffmpegPath = path
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		r.ffprobePath = path
	}
	if r.Available() {
		logging.Info("ffmpeg found at %s", r.ffmpegPath)
	} else {
		logging.Warn("ffmpeg or ffprobe not found on PATH; video operations disabled")
	}
	return r
}

// Available reports whether both binaries were found.
func (r *Runner) Available() bool {
	return r.ffmpegPath != "" && r.ffprobePath != ""
}

// errUnavailable is returned by every operation when ffmpeg is missing.
var errUnavailable = fmt.Errorf("ffmpeg is not available")

// ProbeInfo is the subset of stream metadata the library records.
type ProbeInfo struct {
	DurationSecs float64
	Width        int
	Height       int
	Codec        string
}

// ffprobe's -print_format json output, reduced to what we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe extracts duration, dimensions, and the video codec of a file.
func (r *Runner) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	if !r.Available() {
		return nil, errUnavailable
	}
	done := observeJob("probe")

	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		err = fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
		done(err)
		return nil, err
	}

	var raw probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		err = fmt.Errorf("failed to parse ffprobe output: %w", err)
		done(err)
		return nil, err
	}

	info := &ProbeInfo{}
	info.DurationSecs, _ = strconv.ParseFloat(raw.Format.Duration, 64)
	for _, s := range raw.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			break
		}
	}

	done(nil)
	return info, nil
}

// run executes an ffmpeg command, folding stderr into the error.
func (r *Runner) run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := exec.CommandContext(ctx, r.ffmpegPath, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug("running ffmpeg %v", args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w - %s", err, stderr.String())
	}
	return nil
}

// observeJob starts a job timer; call the returned func with the
// outcome to record duration, status, and the in-progress gauge.
func observeJob(operation string) func(error) {
	start := time.Now()
	metrics.FFmpegJobsInProgress.Inc()
	return func(err error) {
		metrics.FFmpegJobsInProgress.Dec()
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.FFmpegJobsTotal.WithLabelValues(operation, status).Inc()
		metrics.FFmpegJobDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func formatSecs(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
