// Package timeline rebuilds a human-readable transcript annotated with
// [MM:SS] markers from provider utterances.
package timeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// FormatOffset renders an offset in seconds as MM:SS.
// Sub-second precision is truncated, not rounded.
func FormatOffset(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	minutes := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// Reconstruct returns one "[MM:SS] text" line per utterance, in input order.
func Reconstruct(utterances []models.Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		lines = append(lines, "["+FormatOffset(u.Start)+"] "+u.Transcript)
	}
	return strings.Join(lines, "\n")
}

// Timestamped returns the reconstructed timeline, or transcript verbatim
// when there are no utterances.
func Timestamped(transcript string, utterances []models.Utterance) string {
	if len(utterances) == 0 {
		return transcript
	}
	return Reconstruct(utterances)
}

// Apply fills r.TimestampedTranscript from its utterances.
func Apply(r *models.TranscriptionResult) {
	r.TimestampedTranscript = Timestamped(r.Transcript, r.Utterances)
}
