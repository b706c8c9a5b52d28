package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
)

// waveformSampleRate keeps decoding cheap; peak detail at 8 kHz mono
// is indistinguishable in a waveform strip.
const waveformSampleRate = 8000

// Waveform decodes the audio track of in to mono PCM and reduces it to
// buckets normalized peak values in [0, 1]. A clip with no audio track
// yields all-zero peaks.
func (r *Runner) Waveform(ctx context.Context, in string, buckets int) ([]float32, error) {
	if !r.Available() {
		return nil, errUnavailable
	}
	if buckets <= 0 {
		return nil, fmt.Errorf("invalid bucket count %d", buckets)
	}
	done := observeJob("waveform")

	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-ac", "1",
		"-ar", fmt.Sprint(waveformSampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		err = fmt.Errorf("ffmpeg error: %w - %s", err, stderr.String())
		done(err)
		return nil, err
	}

	samples := decodeSamples(stdout.Bytes())
	peaks := computePeaks(samples, buckets)
	done(nil)
	return peaks, nil
}

// decodeSamples reads little-endian float32 PCM, dropping a trailing
// partial sample.
func decodeSamples(raw []byte) []float32 {
	n := len(raw) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples
}

// computePeaks reduces samples to one absolute peak per bucket and
// normalizes so the loudest bucket is 1. Silence stays all zero.
func computePeaks(samples []float32, buckets int) []float32 {
	peaks := make([]float32, buckets)
	if len(samples) == 0 {
		return peaks
	}

	perBucket := len(samples) / buckets
	if perBucket < 1 {
		perBucket = 1
	}

	var max float32
	for b := 0; b < buckets; b++ {
		start := b * perBucket
		if start >= len(samples) {
			break
		}
		end := start + perBucket
		if b == buckets-1 || end > len(samples) {
			end = len(samples)
		}
		var peak float32
		for _, s := range samples[start:end] {
			if a := float32(math.Abs(float64(s))); a > peak {
				peak = a
			}
		}
		peaks[b] = peak
		if peak > max {
			max = peak
		}
	}

	if max > 0 {
		for i := range peaks {
			peaks[i] /= max
		}
	}
	return peaks
}
