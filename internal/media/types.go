// Package media implements the media-synthesis assembly pipeline: merging
// per-sentence speech segments into a single timed track, classifying audio
// loudness per video frame, compositing grid animation frames, and muxing the
// final subtitled video through an external encoder.
package media

// Frame rate shared by the loudness classifier and the compositor. The window
// rate and the video frame rate must be equal or audio/video sync drifts.
const (
	FrameRate      = 16
	OutputSize     = 512
	gridLoopFrames = 32
)

// Bucket is a discrete loudness class for one 1/16 s audio window.
type Bucket int

const (
	BucketQuiet Bucket = iota
	BucketMedium
	BucketLoud
)

// SpeechSegment is one sentence's synthesized audio with its source text.
type SpeechSegment struct {
	Text  string
	Audio []byte
	Order int
}

// Cue is a single subtitle entry. Start and End are cumulative offsets in
// seconds from the beginning of the merged track.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// MergedTrack is the merged audio artifact plus its subtitle cues.
type MergedTrack struct {
	AudioPath string
	SRTPath   string
	Cues      []Cue
}
