package timeline

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "00:00"},
		{0.99, "00:00"},
		{42, "00:42"},
		{59.999, "00:59"},
		{60, "01:00"},
		{125.9, "02:05"},
		{130, "02:10"},
		{3599.5, "59:59"},
		{6000, "100:00"},
		{-3, "00:00"},
		{math.NaN(), "00:00"},
		{math.Inf(1), "00:00"},
		{math.Inf(-1), "00:00"},
	}

	for _, tt := range tests {
		if got := FormatOffset(tt.input); got != tt.expected {
			t.Errorf("FormatOffset(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestReconstruct_OneLinePerUtterance(t *testing.T) {
	utterances := []models.Utterance{
		{Start: 0, End: 3.2, Transcript: "Goedemorgen allemaal."},
		{Start: 42.7, End: 50, Transcript: "We moeten de login fixen!"},
		{Start: 130.01, End: 140, Transcript: "  ja, EENS.  "},
	}

	got := Reconstruct(utterances)
	lines := strings.Split(got, "\n")

	if len(lines) != len(utterances) {
		t.Fatalf("expected %d lines, got %d", len(utterances), len(lines))
	}

	prefix := regexp.MustCompile(`^\[\d{2,}:\d{2}\] `)
	for i, line := range lines {
		if !prefix.MatchString(line) {
			t.Errorf("line %d has malformed prefix: %q", i, line)
		}
	}

	want := []string{"[00:00] ", "[00:42] ", "[02:10] "}
	for i, p := range want {
		if !strings.HasPrefix(lines[i], p) {
			t.Errorf("line %d: expected prefix %q, got %q", i, p, lines[i])
		}
	}

	// Text passes through unchanged
	if lines[2] != "[02:10]   ja, EENS.  " {
		t.Errorf("expected transcript text untouched, got %q", lines[2])
	}
}

func TestReconstruct_PreservesInputOrder(t *testing.T) {
	utterances := []models.Utterance{
		{Start: 30, Transcript: "second"},
		{Start: 10, Transcript: "first"},
	}

	got := Reconstruct(utterances)
	if got != "[00:30] second\n[00:10] first" {
		t.Errorf("expected input order to be kept, got %q", got)
	}
}

func TestTimestamped_EmptyUtterancesIsIdentity(t *testing.T) {
	transcript := "Geen segmentatie beschikbaar.\nTweede regel."

	if got := Timestamped(transcript, nil); got != transcript {
		t.Errorf("expected identity, got %q", got)
	}
	if got := Timestamped(transcript, []models.Utterance{}); got != transcript {
		t.Errorf("expected identity for empty slice, got %q", got)
	}
	if got := Timestamped("", nil); got != "" {
		t.Errorf("expected empty transcript to stay empty, got %q", got)
	}
}

func TestApply(t *testing.T) {
	speaker := 1
	r := &models.TranscriptionResult{
		Transcript: "a b",
		Utterances: []models.Utterance{
			{Start: 1, End: 2, Transcript: "a", Speaker: &speaker},
			{Start: 61, End: 62, Transcript: "b"},
		},
	}

	Apply(r)

	if r.TimestampedTranscript != "[00:01] a\n[01:01] b" {
		t.Errorf("unexpected timestamped transcript: %q", r.TimestampedTranscript)
	}
}
