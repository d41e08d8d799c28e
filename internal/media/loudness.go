package media

import (
	"context"
	"log/slog"
	"math"
)

// RMS thresholds separating the three loudness buckets. These are fixed
// constants of the system, not tunables.
const (
	quietThreshold = 0.10
	loudThreshold  = 0.125
)

// Classifier labels each 1/16 s window of an audio track with a loudness
// bucket. The output length is the authoritative video frame count.
type Classifier struct {
	reader SampleReader
	log    *slog.Logger
}

// NewClassifier creates a Classifier backed by the given sample reader.
func NewClassifier(reader SampleReader, log *slog.Logger) *Classifier {
	return &Classifier{reader: reader, log: log}
}

// Analyze decodes the track and classifies its loudness per window.
func (c *Classifier) Analyze(ctx context.Context, audioPath string) ([]Bucket, error) {
	samples, rate, err := c.reader.ReadMono(ctx, audioPath)
	if err != nil {
		return nil, &AudioReadError{Path: audioPath, Err: err}
	}
	seq := Classify(samples, rate)
	c.log.Debug("loudness classified", "windows", len(seq), "sample_rate", rate)
	return seq, nil
}

// Classify partitions samples into consecutive windows of sampleRate/16
// samples and buckets each window by RMS amplitude. The trailing partial
// window, if any, is classified as-is.
func Classify(samples []float32, sampleRate int) []Bucket {
	windowSize := sampleRate / FrameRate
	if windowSize < 1 {
		windowSize = 1
	}
	var seq []Bucket
	for start := 0; start < len(samples); start += windowSize {
		end := start + windowSize
		if end > len(samples) {
			end = len(samples)
		}
		seq = append(seq, bucketFor(rms(samples[start:end])))
	}
	return seq
}

func rms(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(window)))
}

func bucketFor(rms float64) Bucket {
	switch {
	case rms < quietThreshold:
		return BucketQuiet
	case rms < loudThreshold:
		return BucketMedium
	default:
		return BucketLoud
	}
}
