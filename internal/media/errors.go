package media

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a merge is requested with no segments.
var ErrEmptyInput = errors.New("no speech segments to merge")

// SegmentDecodeError indicates a segment's audio bytes could not be probed or
// concatenated.
type SegmentDecodeError struct {
	Index int
	Err   error
}

func (e *SegmentDecodeError) Error() string {
	return fmt.Sprintf("segment %d: decode failed: %v", e.Index, e.Err)
}

func (e *SegmentDecodeError) Unwrap() error { return e.Err }

// AudioReadError indicates an audio file could not be decoded for analysis.
type AudioReadError struct {
	Path string
	Err  error
}

func (e *AudioReadError) Error() string {
	return fmt.Sprintf("read audio %s: %v", e.Path, e.Err)
}

func (e *AudioReadError) Unwrap() error { return e.Err }

// FrameIndexError indicates a frame selection outside a grid row's bounds,
// either because the bucket has no row or because the row is shorter than the
// animation loop period.
type FrameIndexError struct {
	Bucket Bucket
	Frame  int
	RowLen int
}

func (e *FrameIndexError) Error() string {
	return fmt.Sprintf("grid row %d has %d frames, cannot select frame %d", e.Bucket, e.RowLen, e.Frame)
}

// EncodeError indicates the video writer could not be opened or finalized.
type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// EncodeProcessError carries the exit status and diagnostic output of a failed
// external encoder invocation. It is terminal for the request; the pipeline
// never retries it.
type EncodeProcessError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *EncodeProcessError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Output)
}
