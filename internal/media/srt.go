package media

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// formatSRTTime renders seconds as HH:MM:SS,mmm (comma decimal separator per
// the SRT format).
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// Truncate to whole milliseconds; the epsilon absorbs float error on
	// exact boundaries.
	ms := int64(math.Floor(seconds*1000 + 1e-6))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSRT writes subtitle cues in SubRip format.
func WriteSRT(cues []Cue, path string) error {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTime(c.Start), formatSRTTime(c.End))
		fmt.Fprintf(&b, "%s\n\n", c.Text)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
