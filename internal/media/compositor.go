package media

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Compositor renders one animation frame per loudness window into a silent
// video matching the merged track's frame count.
type Compositor struct {
	writer FrameWriter
	log    *slog.Logger
}

// NewCompositor creates a Compositor using the given frame writer.
func NewCompositor(writer FrameWriter, log *slog.Logger) *Compositor {
	return &Compositor{writer: writer, log: log}
}

// SelectFrames maps the loudness sequence onto grid frame paths. Output frame
// i uses grid[seq[i]][i mod 32]: each row loops with a fixed 32-frame period
// independent of its stored length, so rows shorter than 32 frames are an
// error. Validation happens here, before any encoder runs.
func SelectFrames(seq []Bucket, grid *Grid) ([]string, error) {
	frames := make([]string, 0, len(seq))
	for i, b := range seq {
		idx := i % gridLoopFrames
		if int(b) < 0 || int(b) >= grid.Rows() || grid.RowLen(b) < gridLoopFrames {
			return nil, &FrameIndexError{Bucket: b, Frame: idx, RowLen: grid.RowLen(b)}
		}
		frames = append(frames, grid.Frame(b, idx))
	}
	return frames, nil
}

// Render selects the frame sequence and writes the silent video into
// scratchDir at 512x512, 16 fps, exactly len(seq) frames.
func (c *Compositor) Render(ctx context.Context, seq []Bucket, grid *Grid, scratchDir string) (string, error) {
	frames, err := SelectFrames(seq, grid)
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(scratchDir, "grid_video.mp4")
	if err := c.writer.WriteVideo(ctx, frames, outPath); err != nil {
		return "", err
	}
	c.log.Debug("silent video rendered", "frames", len(frames), "path", outPath)
	return outPath, nil
}
