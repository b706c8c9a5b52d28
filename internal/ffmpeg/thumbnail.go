package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// thumbWidth is the rendered card width at the highest density the
// grid shows; frames are downscaled to it before encoding.
const thumbWidth = 640

// CaptureFrame writes a single frame of in at atSecs to out. The
// output format follows the file extension.
func (r *Runner) CaptureFrame(ctx context.Context, in string, atSecs float64, out string) error {
	if !r.Available() {
		return errUnavailable
	}
	done := observeJob("frame")

	err := r.run(ctx,
		"-ss", formatSecs(atSecs),
		"-i", in,
		"-frames:v", "1",
		out,
	)
	done(err)
	return err
}

// Thumbnail extracts a representative frame and writes a resized JPEG
// to out. The frame is taken a second in, past any black lead-in.
func (r *Runner) Thumbnail(ctx context.Context, in, out string) error {
	if !r.Available() {
		return errUnavailable
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("frame-%d-%s.png", os.Getpid(), filepath.Base(out)))
	defer func() { _ = os.Remove(tmp) }()

	if err := r.CaptureFrame(ctx, in, 1.0, tmp); err != nil {
		return err
	}

	frame, err := imaging.Open(tmp)
	if err != nil {
		return fmt.Errorf("failed to decode captured frame: %w", err)
	}
	if frame.Bounds().Dx() > thumbWidth {
		frame = imaging.Resize(frame, thumbWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(frame, out, imaging.JPEGQuality(82)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
