package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/atorsvn/neku-bot/internal/metrics"
)

// Prober measures the exact duration of an encoded audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AudioJoiner losslessly concatenates same-format audio files in order.
type AudioJoiner interface {
	Join(ctx context.Context, inputs []string, outPath string) error
}

// SampleReader decodes an audio file to mono samples at its native rate.
type SampleReader interface {
	ReadMono(ctx context.Context, path string) (samples []float32, sampleRate int, err error)
}

// FrameWriter encodes an ordered frame-image sequence into a silent video.
type FrameWriter interface {
	WriteVideo(ctx context.Context, framePaths []string, outPath string) error
}

// FrameExtractor decodes a source video into per-frame image files.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, destDir string) ([]string, error)
}

// Encoder is the narrow capability interface over the external encoder tool.
type Encoder interface {
	// Mux combines a silent video and an audio track, trimming the output to
	// the shorter of the two streams.
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error

	// BurnSubtitles overlays SRT cues as in-picture text, re-encoding video
	// while copying the audio stream unchanged.
	BurnSubtitles(ctx context.Context, videoPath, srtPath, outPath string) error
}

// FFmpegToolset implements all external-tool capabilities using ffmpeg and
// ffprobe binaries on PATH.
type FFmpegToolset struct {
	FFmpeg  string
	FFprobe string
}

// NewFFmpegToolset returns a toolset using the default binary names.
func NewFFmpegToolset() *FFmpegToolset {
	return &FFmpegToolset{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// Duration returns the container duration in seconds via ffprobe.
func (t *FFmpegToolset) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.run(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	return dur, nil
}

// Join concatenates encoded audio files with the concat demuxer and stream
// copy, so matching formats are joined sample-accurately without re-encoding.
func (t *FFmpegToolset) Join(ctx context.Context, inputs []string, outPath string) error {
	listFile := filepath.Join(filepath.Dir(outPath), "audio_concat.txt")
	var lines []string
	for _, in := range inputs {
		lines = append(lines, fmt.Sprintf("file '%s'", in))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}
	_, err := t.run(ctx, t.FFmpeg, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outPath,
	)
	return err
}

// ReadMono decodes to raw 32-bit float mono PCM at the source sample rate.
func (t *FFmpegToolset) ReadMono(ctx context.Context, path string) ([]float32, int, error) {
	rate, err := t.sampleRate(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	raw, err := t.runBinary(ctx, t.FFmpeg,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"pipe:1",
	)
	if err != nil {
		return nil, 0, err
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, rate, nil
}

func (t *FFmpegToolset) sampleRate(ctx context.Context, path string) (int, error) {
	out, err := t.run(ctx, t.FFprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	rate, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse sample rate of %s: %w", path, err)
	}
	return rate, nil
}

// WriteVideo renders the frame sequence as a silent video at the fixed output
// resolution and frame rate.
func (t *FFmpegToolset) WriteVideo(ctx context.Context, framePaths []string, outPath string) error {
	listFile := filepath.Join(filepath.Dir(outPath), "frames_concat.txt")
	var b strings.Builder
	frameDur := 1.0 / float64(FrameRate)
	for _, p := range framePaths {
		fmt.Fprintf(&b, "file '%s'\nduration %.6f\n", p, frameDur)
	}
	// The concat demuxer ignores the last duration directive unless the final
	// entry is repeated.
	if n := len(framePaths); n > 0 {
		fmt.Fprintf(&b, "file '%s'\n", framePaths[n-1])
	}
	if err := os.WriteFile(listFile, []byte(b.String()), 0644); err != nil {
		return &EncodeError{Op: "write frame list", Err: err}
	}
	_, err := t.run(ctx, t.FFmpeg, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", fmt.Sprintf("scale=%d:%d,setsar=1", OutputSize, OutputSize),
		"-r", strconv.Itoa(FrameRate),
		"-frames:v", strconv.Itoa(len(framePaths)),
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	)
	if err != nil {
		return &EncodeError{Op: "write video", Err: err}
	}
	return nil
}

// ExtractFrames dumps every frame of a source video into destDir and returns
// the frame file paths in display order.
func (t *FFmpegToolset) ExtractFrames(ctx context.Context, videoPath, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}
	pattern := filepath.Join(destDir, "frame_%05d.png")
	if _, err := t.run(ctx, t.FFmpeg, "-y",
		"-i", videoPath,
		"-vsync", "0",
		pattern,
	); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(destDir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Mux maps the video stream of the first input and the audio stream of the
// second, trimming to the shorter of the two.
func (t *FFmpegToolset) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	_, err := t.run(ctx, t.FFmpeg, "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outPath,
	)
	if err != nil {
		metrics.EncoderInvocations.WithLabelValues("mux", "error").Inc()
		return err
	}
	metrics.EncoderInvocations.WithLabelValues("mux", "ok").Inc()
	return nil
}

// BurnSubtitles renders the SRT cues into the picture, copying audio as-is.
func (t *FFmpegToolset) BurnSubtitles(ctx context.Context, videoPath, srtPath, outPath string) error {
	_, err := t.run(ctx, t.FFmpeg, "-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles=%s", escapeFilterPath(srtPath)),
		"-c:a", "copy",
		outPath,
	)
	if err != nil {
		metrics.EncoderInvocations.WithLabelValues("burn_subtitles", "error").Inc()
		return err
	}
	metrics.EncoderInvocations.WithLabelValues("burn_subtitles", "ok").Inc()
	return nil
}

// run executes a tool and returns stdout, converting a non-zero exit into an
// EncodeProcessError carrying the captured stderr.
func (t *FFmpegToolset) run(ctx context.Context, tool string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", processError(tool, err, stderr.String())
	}
	return stdout.String(), nil
}

// runBinary is run for tools whose stdout is raw bytes.
func (t *FFmpegToolset) runBinary(ctx context.Context, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, processError(tool, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func processError(tool string, err error, stderr string) error {
	exitCode := -1
	if ee, ok := err.(*exec.ExitError); ok {
		exitCode = ee.ExitCode()
	}
	diag := strings.TrimSpace(stderr)
	if diag == "" {
		diag = err.Error()
	}
	if len(diag) > 2048 {
		diag = diag[len(diag)-2048:]
	}
	return &EncodeProcessError{Tool: filepath.Base(tool), ExitCode: exitCode, Output: diag}
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}
