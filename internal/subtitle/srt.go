package subtitle

import (
	"fmt"
	"math"
	"strings"
)

// Segment is a timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
// Milliseconds are truncated, not rounded. Negative and NaN input is clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	hours := int64(math.Floor(seconds / 3600))
	minutes := int64(math.Floor(math.Mod(seconds, 3600) / 60))
	secs := math.Mod(seconds, 60)
	millis := int64(math.Floor((secs - math.Floor(secs)) * 1000))

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, int64(secs), millis)
}

// BuildSRT renders segments as a SubRip document. Cues are numbered from 1 in
// input order and the result carries no trailing blank line.
func BuildSRT(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(seg.Start),
			FormatTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
		)
	}
	return strings.TrimSpace(sb.String())
}
