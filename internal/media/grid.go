package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Grid is the pre-loaded animation frame set: one row of ordered frame images
// per loudness bucket. It is built once at process start and shared read-only
// by every request; nothing may mutate it after load.
type Grid struct {
	rows [][]string
}

// LoadGrid decodes one source video per bucket (<bucket>.mp4 inside folder)
// into per-frame image files under cacheDir. A missing source video leaves
// that row empty; selecting from an empty row later is an error.
func LoadGrid(ctx context.Context, extractor FrameExtractor, folder, cacheDir string, rows int, log *slog.Logger) (*Grid, error) {
	if rows < 1 {
		return nil, fmt.Errorf("grid needs at least one row, got %d", rows)
	}
	g := &Grid{rows: make([][]string, rows)}
	for i := 0; i < rows; i++ {
		videoPath := filepath.Join(folder, fmt.Sprintf("%d.mp4", i))
		if _, err := os.Stat(videoPath); err != nil {
			log.Warn("grid source video missing, row left empty", "row", i, "path", videoPath)
			continue
		}
		frames, err := extractor.ExtractFrames(ctx, videoPath, filepath.Join(cacheDir, fmt.Sprintf("row_%d", i)))
		if err != nil {
			return nil, fmt.Errorf("extract frames for row %d: %w", i, err)
		}
		g.rows[i] = frames
		log.Info("grid row loaded", "row", i, "frames", len(frames))
	}
	return g, nil
}

// NewGridFromRows builds a grid directly from frame path rows. Used by tests
// and by callers that manage frame extraction themselves.
func NewGridFromRows(rows [][]string) *Grid {
	return &Grid{rows: rows}
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return len(g.rows) }

// RowLen returns the number of frames stored in a row.
func (g *Grid) RowLen(b Bucket) int {
	if int(b) < 0 || int(b) >= len(g.rows) {
		return 0
	}
	return len(g.rows[int(b)])
}

// Frame returns the frame path at a raw row offset without bounds checking
// beyond the row lookup; callers validate via RowLen first.
func (g *Grid) Frame(b Bucket, idx int) string {
	return g.rows[int(b)][idx]
}
