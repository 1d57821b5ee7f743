// Package mock provides a scripted STT adapter for local runs and tests
// without provider credentials.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

func speaker(n int) *int { return &n }

// DefaultUtterances is a short refinement conversation.
var DefaultUtterances = []models.Utterance{
	{Start: 0, End: 4.2, Transcript: "Goedemorgen, laten we beginnen met de refinement.", Speaker: speaker(0)},
	{Start: 42, End: 51.5, Transcript: "Gebruikers willen kunnen inloggen met hun Microsoft account.", Speaker: speaker(1)},
	{Start: 75.3, End: 83, Transcript: "Dan moeten we ook de sessie na dertig minuten laten verlopen.", Speaker: speaker(0)},
	{Start: 130, End: 138.4, Transcript: "En de database moet nog naar de nieuwe versie geupgraded worden.", Speaker: speaker(2)},
}

// Adapter implements the pipeline transcriber with canned results.
type Adapter struct {
	mu         sync.Mutex
	Utterances []models.Utterance
	Confidence float64
	Err        error
	calls      int
	lastMime   string
}

// New creates a mock adapter replaying DefaultUtterances.
func New() *Adapter {
	return &Adapter{
		Utterances: DefaultUtterances,
		Confidence: 0.95,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "mock"
}

// Transcribe returns the scripted utterances or error.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.TranscriptionResult, error) {
	a.mu.Lock()
	a.calls++
	a.lastMime = mimeType
	utterances, confidence, scripted := a.Utterances, a.Confidence, a.Err
	a.mu.Unlock()

	if e := apperr.FromContext(apperr.StageTranscription, ctx.Err()); e != nil {
		return nil, e
	}
	if scripted != nil {
		return nil, scripted
	}

	res := &models.TranscriptionResult{
		Confidence: confidence,
		Utterances: append([]models.Utterance(nil), utterances...),
	}
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		parts = append(parts, u.Transcript)
		res.Duration = max(res.Duration, u.End)
	}
	res.Transcript = strings.Join(parts, " ")
	return res, nil
}

// Calls returns how many times Transcribe ran.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// LastMimeType returns the MIME type of the most recent call.
func (a *Adapter) LastMimeType() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastMime
}
