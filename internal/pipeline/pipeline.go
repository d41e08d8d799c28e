// Package pipeline sequences the media-synthesis stages for one chat request:
// reply generation, segment merge, loudness classification, grid compositing,
// muxing and subtitle burn-in.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atorsvn/neku-bot/internal/emotion"
	"github.com/atorsvn/neku-bot/internal/media"
	"github.com/atorsvn/neku-bot/internal/metrics"
	"github.com/atorsvn/neku-bot/internal/tts"
)

// ReplyGenerator is the chat collaborator contract.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userID, prompt string) (string, error)
}

// EmotionClassifier is the emotion collaborator contract.
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) (emotion.Result, error)
}

// Result holds the artifacts of a completed request. The caller owns the
// output directory and is responsible for deleting it after delivery.
type Result struct {
	RequestID string         `json:"-"`
	ReplyText string         `json:"-"`
	Video     string         `json:"video"`
	Audio     string         `json:"audio"`
	SRT       string         `json:"srt"`
	Segments  string         `json:"segments"`
	Emotion   emotion.Result `json:"emotion"`
}

// segmentRecord is the persisted form of one synthesized chunk.
type segmentRecord struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	Phonemes    string `json:"phonemes"`
	AudioBase64 string `json:"audio_base64"`
}

// Pipeline runs the end-to-end contract consumed by the chat front door.
type Pipeline struct {
	chat       ReplyGenerator
	emotions   EmotionClassifier
	synth      tts.Synthesizer
	merger     *media.Merger
	classifier *media.Classifier
	compositor *media.Compositor
	muxer      *media.Muxer
	grid       *media.Grid
	outputDir  string
	log        *slog.Logger
}

// New assembles a Pipeline from its collaborators and core components. The
// grid is shared read-only across all requests.
func New(
	chat ReplyGenerator,
	emotions EmotionClassifier,
	synth tts.Synthesizer,
	merger *media.Merger,
	classifier *media.Classifier,
	compositor *media.Compositor,
	muxer *media.Muxer,
	grid *media.Grid,
	outputDir string,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		chat:       chat,
		emotions:   emotions,
		synth:      synth,
		merger:     merger,
		classifier: classifier,
		compositor: compositor,
		muxer:      muxer,
		grid:       grid,
		outputDir:  outputDir,
		log:        log,
	}
}

// Run executes all stages for one request. Each request gets a fresh scratch
// directory removed on every exit path; no partial artifact survives a
// failure. The context is checked at stage boundaries so cancellation takes
// effect between stages and kills in-flight encoder processes.
func (p *Pipeline) Run(ctx context.Context, requestID, userID, prompt string) (res *Result, err error) {
	metrics.ActivePipelines.Inc()
	defer metrics.ActivePipelines.Dec()
	defer func() {
		if err != nil {
			metrics.PipelineRuns.WithLabelValues("failed").Inc()
		} else {
			metrics.PipelineRuns.WithLabelValues("ok").Inc()
		}
	}()

	scratch, err := os.MkdirTemp("", "neku-"+requestID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			p.log.Warn("scratch cleanup failed", "dir", scratch, "error", rmErr)
		}
	}()

	log := p.log.With("request_id", requestID, "user_id", userID)
	log.Info("pipeline started", "scratch", scratch)

	// Generating: chat reply, emotion label, speech segments.
	reply, emo, segments, chunks, err := p.generate(ctx, userID, prompt)
	if err != nil {
		return nil, &StageError{Stage: StageGenerating, Err: err}
	}
	log.Info("reply generated", "chars", len(reply), "segments", len(segments), "emotion", emo.Label)

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageMerging, Err: err}
	}

	// Merging.
	track, err := timed(StageMerging, func() (*media.MergedTrack, error) {
		return p.merger.Merge(ctx, segments, scratch)
	})
	if err != nil {
		return nil, &StageError{Stage: StageMerging, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageClassifying, Err: err}
	}

	// Classifying.
	seq, err := timed(StageClassifying, func() ([]media.Bucket, error) {
		return p.classifier.Analyze(ctx, track.AudioPath)
	})
	if err != nil {
		return nil, &StageError{Stage: StageClassifying, Err: err}
	}
	log.Info("loudness classified", "frames", len(seq))

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageCompositing, Err: err}
	}

	// Compositing.
	silentVideo, err := timed(StageCompositing, func() (string, error) {
		return p.compositor.Render(ctx, seq, p.grid, scratch)
	})
	if err != nil {
		return nil, &StageError{Stage: StageCompositing, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageMuxing, Err: err}
	}

	// Muxing.
	muxed, err := timed(StageMuxing, func() (string, error) {
		return p.muxer.Mux(ctx, silentVideo, track.AudioPath, scratch)
	})
	if err != nil {
		return nil, &StageError{Stage: StageMuxing, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageSubtitleBurn, Err: err}
	}

	// Subtitle burn-in.
	final, err := timed(StageSubtitleBurn, func() (string, error) {
		return p.muxer.Burn(ctx, muxed, track.SRTPath, scratch)
	})
	if err != nil {
		return nil, &StageError{Stage: StageSubtitleBurn, Err: err}
	}

	res, err = p.collect(requestID, reply, emo, chunks, track, final)
	if err != nil {
		return nil, &StageError{Stage: StageDone, Err: err}
	}
	log.Info("pipeline done", "video", res.Video)
	return res, nil
}

// generate runs the chat, emotion and TTS collaborators, returning the reply,
// its emotion, and the ordered speech segments.
func (p *Pipeline) generate(ctx context.Context, userID, prompt string) (string, emotion.Result, []media.SpeechSegment, []tts.Chunk, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(StageGenerating)).Observe(time.Since(start).Seconds())
	}()

	reply, err := p.chat.GenerateReply(ctx, userID, prompt)
	if err != nil {
		return "", emotion.Result{}, nil, nil, fmt.Errorf("generate reply: %w", err)
	}

	emo, err := p.emotions.Classify(ctx, reply)
	if err != nil {
		return "", emotion.Result{}, nil, nil, fmt.Errorf("classify emotion: %w", err)
	}

	var (
		segments []media.SpeechSegment
		chunks   []tts.Chunk
		order    int
	)
	for _, sentence := range tts.SplitSentences(reply) {
		out, err := p.synth.Synthesize(ctx, sentence)
		if err != nil {
			return "", emotion.Result{}, nil, nil, fmt.Errorf("synthesize %q: %w", sentence, err)
		}
		for _, c := range out {
			segments = append(segments, media.SpeechSegment{Text: c.Text, Audio: c.Audio, Order: order})
			chunks = append(chunks, c)
			order++
		}
	}
	return reply, emo, segments, chunks, nil
}

// collect copies the surviving artifacts from scratch into a per-request
// output directory and writes the segments JSON. The front door owns deleting
// the directory after delivery.
func (p *Pipeline) collect(requestID, reply string, emo emotion.Result, chunks []tts.Chunk, track *media.MergedTrack, finalVideo string) (*Result, error) {
	outDir := filepath.Join(p.outputDir, requestID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	res := &Result{
		RequestID: requestID,
		ReplyText: reply,
		Video:     filepath.Join(outDir, "response.mp4"),
		Audio:     filepath.Join(outDir, "response.mp3"),
		SRT:       filepath.Join(outDir, "response.srt"),
		Segments:  filepath.Join(outDir, "response_segments.json"),
		Emotion:   emo,
	}

	if err := copyFile(finalVideo, res.Video); err != nil {
		return nil, err
	}
	if err := copyFile(track.AudioPath, res.Audio); err != nil {
		return nil, err
	}
	if err := copyFile(track.SRTPath, res.SRT); err != nil {
		return nil, err
	}

	records := make([]segmentRecord, len(chunks))
	for i, c := range chunks {
		records[i] = segmentRecord{
			Index:       i,
			Text:        c.Text,
			Phonemes:    c.Phonemes,
			AudioBase64: base64.StdEncoding.EncodeToString(c.Audio),
		}
	}
	data, err := json.MarshalIndent(map[string]any{
		"response":   reply,
		"emotion":    emo,
		"audio_data": records,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.Segments, data, 0644); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteSummary persists the {video, audio, srt, segments, emotion} summary
// used by the offline entry point.
func (r *Result) WriteSummary(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// timed wraps a stage function with its duration metric.
func timed[T any](stage Stage, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	return out, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
