package media

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder records operations; optionally fails one of them.
type fakeEncoder struct {
	muxed    bool
	burned   bool
	failMux  bool
	failBurn bool
}

func (e *fakeEncoder) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	if e.failMux {
		return &EncodeProcessError{Tool: "ffmpeg", ExitCode: 1, Output: "stream not found"}
	}
	e.muxed = true
	return os.WriteFile(outPath, []byte("muxed"), 0644)
}

func (e *fakeEncoder) BurnSubtitles(ctx context.Context, videoPath, srtPath, outPath string) error {
	if e.failBurn {
		return &EncodeProcessError{Tool: "ffmpeg", ExitCode: 1, Output: "bad srt"}
	}
	e.burned = true
	return os.WriteFile(outPath, []byte("final"), 0644)
}

func TestMuxerTwoStepFinalize(t *testing.T) {
	enc := &fakeEncoder{}
	m := NewMuxer(enc, testLogger())
	scratch := t.TempDir()

	muxed, err := m.Mux(context.Background(), "video.mp4", "audio.mp3", scratch)
	require.NoError(t, err)
	assert.True(t, enc.muxed)
	assert.FileExists(t, muxed)

	final, err := m.Burn(context.Background(), muxed, "subs.srt", scratch)
	require.NoError(t, err)
	assert.True(t, enc.burned)
	assert.FileExists(t, final)
}

func TestMuxerSurfacesProcessError(t *testing.T) {
	m := NewMuxer(&fakeEncoder{failMux: true}, testLogger())

	_, err := m.Mux(context.Background(), "v", "a", t.TempDir())
	var procErr *EncodeProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 1, procErr.ExitCode)
	assert.Contains(t, procErr.Output, "stream not found")
}

func TestLoadGridMissingSources(t *testing.T) {
	// No source videos present: every row loads empty, selection fails later.
	tools := NewFFmpegToolset()
	grid, err := LoadGrid(context.Background(), tools, t.TempDir(), t.TempDir(), 3, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, grid.Rows())
	for b := 0; b < 3; b++ {
		assert.Equal(t, 0, grid.RowLen(Bucket(b)))
	}
}

func TestLoadGridRejectsZeroRows(t *testing.T) {
	_, err := LoadGrid(context.Background(), NewFFmpegToolset(), t.TempDir(), t.TempDir(), 0, testLogger())
	assert.Error(t, err)
}
