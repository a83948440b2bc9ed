package audio

import (
	"fmt"
	"os"
	"strings"
)

// WriteSRT writes one SubRip cue per segment, timed against the combined file.
func WriteSRT(path string, segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to write a transcript from")
	}

	var sb strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s: %s\n\n",
			i+1,
			formatSRTTime(s.Offset),
			formatSRTTime(s.Offset+s.Duration),
			s.Speaker,
			s.Dialogue,
		)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// formatSRTTime renders seconds as HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000)
}
