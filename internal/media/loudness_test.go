package media

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestClassifySilence(t *testing.T) {
	// One second of silence at 16 kHz: 16 windows, all quiet.
	seq := Classify(constant(16000, 0), 16000)
	require.Len(t, seq, 16)
	for _, b := range seq {
		assert.Equal(t, BucketQuiet, b)
	}
}

func TestClassifyLoudTone(t *testing.T) {
	seq := Classify(constant(16000, 0.5), 16000)
	require.Len(t, seq, 16)
	for _, b := range seq {
		assert.Equal(t, BucketLoud, b)
	}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		amplitude float32
		want      Bucket
	}{
		{0.0, BucketQuiet},
		{0.099, BucketQuiet},
		{0.10, BucketMedium},
		{0.124, BucketMedium},
		{0.125, BucketLoud},
		{0.9, BucketLoud},
	}
	for _, tc := range cases {
		// A constant signal's RMS equals its amplitude.
		seq := Classify(constant(1000, tc.amplitude), 16000)
		require.Len(t, seq, 1)
		assert.Equal(t, tc.want, seq[0], "amplitude=%v", tc.amplitude)
	}
}

func TestClassifyPartialFinalWindow(t *testing.T) {
	// 1.5 windows: the trailing half window is classified as-is.
	seq := Classify(constant(1500, 0.5), 16000)
	require.Len(t, seq, 2)
	assert.Equal(t, BucketLoud, seq[1])
}

func TestClassifyLengthMatchesCeiling(t *testing.T) {
	cases := []struct {
		samples int
		rate    int
		want    int
	}{
		{16000, 16000, 16},     // exactly 1 s
		{16001, 16000, 17},     // 1 s + 1 sample
		{8000, 16000, 8},       // half a second
		{24000 * 2, 24000, 32}, // 2 s at 24 kHz
		{0, 16000, 0},
	}
	for _, tc := range cases {
		seq := Classify(constant(tc.samples, 0), tc.rate)
		assert.Len(t, seq, tc.want, "samples=%d rate=%d", tc.samples, tc.rate)
	}
}

func TestClassifyQuietToLoudBoundary(t *testing.T) {
	// 1 s silence then 1 s loud tone: bucket flip at window 16.
	samples := append(constant(16000, 0), constant(16000, 0.5)...)
	seq := Classify(samples, 16000)
	require.Len(t, seq, 32)
	for i := 0; i < 16; i++ {
		assert.Equal(t, BucketQuiet, seq[i], "window %d", i)
	}
	for i := 16; i < 32; i++ {
		assert.Equal(t, BucketLoud, seq[i], "window %d", i)
	}
}

// failingReader simulates an undecodable file.
type failingReader struct{}

func (failingReader) ReadMono(ctx context.Context, path string) ([]float32, int, error) {
	return nil, 0, fmt.Errorf("invalid data found when processing input")
}

func TestAnalyzeReadFailure(t *testing.T) {
	c := NewClassifier(failingReader{}, testLogger())
	_, err := c.Analyze(context.Background(), "/nonexistent.mp3")
	var readErr *AudioReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "/nonexistent.mp3", readErr.Path)
}
