// Package models defines the pipeline data structures and event payloads.
package models

// Utterance is a speaker-attributed, time-bounded segment of recognized speech.
// Start and End are offsets in seconds from the beginning of the recording.
type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Transcript string  `json:"transcript"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// TranscriptionResult is the output of the transcription stage.
// TimestampedTranscript is always derived from Utterances (see timeline).
type TranscriptionResult struct {
	Transcript            string      `json:"transcript"`
	TimestampedTranscript string      `json:"timestampedTranscript"`
	Duration              float64     `json:"duration"`
	Confidence            float64     `json:"confidence"`
	Utterances            []Utterance `json:"utterances,omitempty"`
}

// TranscriptCompleted is published after a successful transcription stage.
type TranscriptCompleted struct {
	EventType      string  `json:"eventType"`
	RunID          string  `json:"runId"`
	Flow           string  `json:"flow"`
	Provider       string  `json:"provider"`
	Duration       float64 `json:"duration"`
	Confidence     float64 `json:"confidence"`
	UtteranceCount int     `json:"utteranceCount"`
	Timestamp      int64   `json:"timestamp"`
}

// TicketsGenerated is published after tickets were extracted and normalized.
type TicketsGenerated struct {
	EventType string   `json:"eventType"`
	RunID     string   `json:"runId"`
	Count     int      `json:"count"`
	Stories   int      `json:"stories"`
	Tasks     int      `json:"tasks"`
	Summary   string   `json:"summary"`
	Tickets   []Ticket `json:"tickets"`
	Timestamp int64    `json:"timestamp"`
}

// Event types.
const (
	EventTranscriptCompleted = "meeting.transcript.completed"
	EventTicketsGenerated    = "meeting.tickets.generated"
)
