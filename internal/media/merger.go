package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Merger concatenates ordered speech segments into a single audio track and
// emits subtitle cues matching each segment's probed duration.
type Merger struct {
	prober Prober
	joiner AudioJoiner
	log    *slog.Logger
}

// NewMerger creates a Merger using the given probing and joining capabilities.
func NewMerger(prober Prober, joiner AudioJoiner, log *slog.Logger) *Merger {
	return &Merger{prober: prober, joiner: joiner, log: log}
}

// Merge writes each segment blob into scratchDir, probes its duration, joins
// the blobs losslessly in order, and writes the cue file. All writes stay
// inside scratchDir.
func (m *Merger) Merge(ctx context.Context, segments []SpeechSegment, scratchDir string) (*MergedTrack, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyInput
	}

	ordered := make([]SpeechSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	var (
		paths   []string
		cues    []Cue
		elapsed float64
	)
	for i, seg := range ordered {
		segPath := filepath.Join(scratchDir, fmt.Sprintf("segment_%03d.mp3", i))
		if err := os.WriteFile(segPath, seg.Audio, 0644); err != nil {
			return nil, &SegmentDecodeError{Index: i, Err: err}
		}
		dur, err := m.prober.Duration(ctx, segPath)
		if err != nil {
			return nil, &SegmentDecodeError{Index: i, Err: err}
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: elapsed,
			End:   elapsed + dur,
			Text:  seg.Text,
		})
		elapsed += dur
		paths = append(paths, segPath)
	}

	audioPath := filepath.Join(scratchDir, "merged.mp3")
	if err := m.joiner.Join(ctx, paths, audioPath); err != nil {
		return nil, &SegmentDecodeError{Index: -1, Err: err}
	}

	srtPath := filepath.Join(scratchDir, "subs.srt")
	if err := WriteSRT(cues, srtPath); err != nil {
		return nil, fmt.Errorf("write cue file: %w", err)
	}

	m.log.Debug("segments merged", "count", len(ordered), "total_sec", elapsed)
	return &MergedTrack{AudioPath: audioPath, SRTPath: srtPath, Cues: cues}, nil
}
