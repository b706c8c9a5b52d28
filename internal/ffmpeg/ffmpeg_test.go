package ffmpeg

import (
	"context"
	"math"
	"testing"
)

func TestUnavailableRunnerRefusesWork(t *testing.T) {
	r := &Runner{}
	ctx := context.Background()

	if _, err := r.Probe(ctx, "in.mp4"); err == nil {
		t.Error("Probe succeeded without binaries")
	}
	if err := r.Trim(ctx, "in.mp4", "out.mp4", 0, 1, false); err == nil {
		t.Error("Trim succeeded without binaries")
	}
	if _, err := r.Waveform(ctx, "in.mp4", 100); err == nil {
		t.Error("Waveform succeeded without binaries")
	}
}

func TestTrimArgs(t *testing.T) {
	copyArgs := trimArgs("in.mp4", "out.mp4", 1.5, 4.0, false)
	if !contains(copyArgs, "copy") {
		t.Errorf("copy mode args missing stream copy: %v", copyArgs)
	}
	if !contains(copyArgs, "2.500") {
		t.Errorf("copy mode args missing duration 2.500: %v", copyArgs)
	}

	precise := trimArgs("in.mp4", "out.mp4", 1.5, 4.0, true)
	if contains(precise, "copy") {
		t.Errorf("precise mode must re-encode: %v", precise)
	}
	if !contains(precise, "libx264") {
		t.Errorf("precise mode args missing encoder: %v", precise)
	}
}

func TestTrimRejectsInvertedRange(t *testing.T) {
	r := &Runner{ffmpegPath: "/usr/bin/ffmpeg", ffprobePath: "/usr/bin/ffprobe"}
	if err := r.Trim(context.Background(), "in.mp4", "out.mp4", 5, 5, false); err == nil {
		t.Fatal("zero-length trim accepted")
	}
}

func TestCompressArgs(t *testing.T) {
	tests := []struct {
		preset CompressPreset
		crf    string
		scaled bool
	}{
		{CompressHigh, "22", false},
		{CompressMedium, "28", true},
		{CompressLow, "34", true},
	}
	for _, tc := range tests {
		t.Run(string(tc.preset), func(t *testing.T) {
			args, err := compressArgs("in.mp4", "out.mp4", tc.preset)
			if err != nil {
				t.Fatal(err)
			}
			if !contains(args, tc.crf) {
				t.Errorf("args missing crf %s: %v", tc.crf, args)
			}
			if tc.scaled != contains(args, "-vf") {
				t.Errorf("preset %s scale cap mismatch: %v", tc.preset, args)
			}
		})
	}

	if _, err := compressArgs("in.mp4", "out.mp4", "ultra"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestComputePeaks(t *testing.T) {
	// Two buckets: quiet first half, loud second half.
	samples := make([]float32, 200)
	for i := 0; i < 100; i++ {
		samples[i] = 0.25
	}
	for i := 100; i < 200; i++ {
		samples[i] = -0.5 // negative peaks count via abs
	}

	peaks := computePeaks(samples, 2)
	if len(peaks) != 2 {
		t.Fatalf("got %d peaks, want 2", len(peaks))
	}
	if math.Abs(float64(peaks[1]-1)) > 1e-6 {
		t.Errorf("loudest bucket = %v, want 1 after normalization", peaks[1])
	}
	if math.Abs(float64(peaks[0]-0.5)) > 1e-6 {
		t.Errorf("quiet bucket = %v, want 0.5", peaks[0])
	}
}

func TestComputePeaksSilence(t *testing.T) {
	peaks := computePeaks(make([]float32, 1000), 10)
	for i, p := range peaks {
		if p != 0 {
			t.Fatalf("silent bucket %d = %v", i, p)
		}
	}
}

func TestComputePeaksFewerSamplesThanBuckets(t *testing.T) {
	peaks := computePeaks([]float32{0.5, 1.0}, 10)
	if len(peaks) != 10 {
		t.Fatalf("got %d peaks, want 10", len(peaks))
	}
}

func TestDecodeSamplesDropsPartialTail(t *testing.T) {
	raw := []byte{0, 0, 128, 63, 0, 0} // one full float32 (1.0) plus 2 stray bytes
	samples := decodeSamples(raw)
	if len(samples) != 1 || samples[0] != 1.0 {
		t.Fatalf("samples = %v, want [1]", samples)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
