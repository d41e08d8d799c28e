package media

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Muxer drives the external encoder: first combining picture and sound, then
// burning the subtitle cues into the picture. The two steps are separate so
// the orchestrator can attribute failures to the right stage.
type Muxer struct {
	encoder Encoder
	log     *slog.Logger
}

// NewMuxer creates a Muxer over the given encoder capability.
func NewMuxer(encoder Encoder, log *slog.Logger) *Muxer {
	return &Muxer{encoder: encoder, log: log}
}

// Mux combines the silent video with the merged audio, trimmed to the shorter
// stream, writing the result inside scratchDir.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, scratchDir string) (string, error) {
	muxed := filepath.Join(scratchDir, "muxed.mp4")
	if err := m.encoder.Mux(ctx, videoPath, audioPath, muxed); err != nil {
		return "", err
	}
	m.log.Debug("audio muxed", "path", muxed)
	return muxed, nil
}

// Burn renders the subtitle cues into the picture, copying audio unchanged.
func (m *Muxer) Burn(ctx context.Context, videoPath, srtPath, scratchDir string) (string, error) {
	final := filepath.Join(scratchDir, "final.mp4")
	if err := m.encoder.BurnSubtitles(ctx, videoPath, srtPath, final); err != nil {
		return "", err
	}
	m.log.Debug("subtitles burned", "path", final)
	return final, nil
}
