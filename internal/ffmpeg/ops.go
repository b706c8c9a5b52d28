package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Trim cuts [startSecs, endSecs] of in to out. In copy mode the streams
// are remuxed without re-encoding, which is instant but snaps to the
// nearest keyframe; precise mode re-encodes for frame-exact cuts.
func (r *Runner) Trim(ctx context.Context, in, out string, startSecs, endSecs float64, precise bool) error {
	if !r.Available() {
		return errUnavailable
	}
	if endSecs <= startSecs {
		return fmt.Errorf("invalid trim range: end %.3f <= start %.3f", endSecs, startSecs)
	}
	done := observeJob("trim")

	err := r.run(ctx, trimArgs(in, out, startSecs, endSecs, precise)...)
	done(err)
	return err
}

func trimArgs(in, out string, startSecs, endSecs float64, precise bool) []string {
	duration := formatSecs(endSecs - startSecs)
	if precise {
		// Input seek then re-encode. -ss after -i would decode from
		// the start of the file; before -i it seeks first.
		return []string{
			"-ss", formatSecs(startSecs),
			"-i", in,
			"-t", duration,
			"-c:v", "libx264", "-preset", "fast", "-crf", "18",
			"-c:a", "aac",
			out,
		}
	}
	return []string{
		"-ss", formatSecs(startSecs),
		"-i", in,
		"-t", duration,
		"-c", "copy",
		out,
	}
}

// GIF exports [startSecs, endSecs] of in as an animated GIF using a
// two-pass palette so the 256-color quantization matches the footage.
func (r *Runner) GIF(ctx context.Context, in, out string, startSecs, endSecs float64, fps, width int) error {
	if !r.Available() {
		return errUnavailable
	}
	if endSecs <= startSecs {
		return fmt.Errorf("invalid gif range: end %.3f <= start %.3f", endSecs, startSecs)
	}
	if fps <= 0 {
		fps = 15
	}
	if width <= 0 {
		width = 480
	}
	done := observeJob("gif")

	palette := filepath.Join(os.TempDir(), fmt.Sprintf("palette-%d.png", os.Getpid()))
	defer func() { _ = os.Remove(palette) }()

	duration := formatSecs(endSecs - startSecs)
	scale := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width)

	// Pass 1: build the palette.
	err := r.run(ctx,
		"-ss", formatSecs(startSecs),
		"-t", duration,
		"-i", in,
		"-vf", scale+",palettegen",
		palette,
	)
	if err != nil {
		done(err)
		return err
	}

	// Pass 2: render with it.
	err = r.run(ctx,
		"-ss", formatSecs(startSecs),
		"-t", duration,
		"-i", in,
		"-i", palette,
		"-lavfi", scale+"[x];[x][1:v]paletteuse",
		out,
	)
	done(err)
	return err
}

// CompressPreset selects a quality/size tradeoff.
type CompressPreset string

// Compression presets, best quality first.
const (
	CompressHigh   CompressPreset = "high"
	CompressMedium CompressPreset = "medium"
	CompressLow    CompressPreset = "low"
)

// Compress re-encodes in at a preset quality. Lower presets also cap
// the output resolution.
func (r *Runner) Compress(ctx context.Context, in, out string, preset CompressPreset) error {
	if !r.Available() {
		return errUnavailable
	}
	done := observeJob("compress")

	args, err := compressArgs(in, out, preset)
	if err != nil {
		done(err)
		return err
	}
	err = r.run(ctx, args...)
	done(err)
	return err
}

func compressArgs(in, out string, preset CompressPreset) ([]string, error) {
	var crf int
	var speed, scale string
	switch preset {
	case CompressHigh:
		crf, speed = 22, "medium"
	case CompressMedium:
		crf, speed = 28, "fast"
		scale = "scale='min(1920,iw)':-2"
	case CompressLow:
		crf, speed = 34, "fast"
		scale = "scale='min(1280,iw)':-2"
	default:
		return nil, fmt.Errorf("unknown compress preset %q", preset)
	}

	args := []string{"-i", in}
	if scale != "" {
		args = append(args, "-vf", scale)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", speed,
		"-crf", strconv.Itoa(crf),
		"-c:a", "aac", "-b:a", "128k",
		out,
	)
	return args, nil
}
