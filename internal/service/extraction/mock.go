package extraction

import (
	"context"
	"regexp"
	"sync"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

var timestampPattern = regexp.MustCompile(`\[\d{2,}:\d{2}\]`)

// Mock is an Extractor for local runs and tests. It replies with a scripted
// draft or error and records every transcript it receives.
type Mock struct {
	mu          sync.Mutex
	Draft       *models.GenerationDraft
	Content     string // raw model content, parsed like a real reply when set
	Err         error
	transcripts []string
}

// NewMock creates a mock that derives a small draft from the transcript.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns the provider name.
func (m *Mock) Name() string {
	return ProviderMock
}

// Extract returns the scripted reply.
func (m *Mock) Extract(ctx context.Context, transcript string) (*models.GenerationDraft, error) {
	m.mu.Lock()
	m.transcripts = append(m.transcripts, transcript)
	draft, content, err := m.Draft, m.Content, m.Err
	m.mu.Unlock()

	if e := apperr.FromContext(apperr.StageGeneration, ctx.Err()); e != nil {
		return nil, e
	}
	if err != nil {
		return nil, err
	}
	if content != "" {
		return Parse(content)
	}
	if draft != nil {
		return draft, nil
	}
	return sampleDraft(transcript), nil
}

// Calls returns the number of Extract calls.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transcripts)
}

// Transcripts returns the transcripts received so far.
func (m *Mock) Transcripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.transcripts...)
}

func sampleDraft(transcript string) *models.GenerationDraft {
	ts := timestampPattern.FindString(transcript)
	return &models.GenerationDraft{
		Summary: "Mock refinement summary",
		Tickets: []models.TicketDraft{
			{
				Type:               models.TicketStory,
				Title:              "Als gebruiker wil ik de besproken functionaliteit gebruiken",
				Description:        "Automatisch gegenereerd door de mock provider.",
				AcceptanceCriteria: []string{"Functionaliteit werkt zoals besproken"},
				Source:             &models.Source{Timestamp: ts},
			},
			{
				Type:        models.TicketTask,
				Title:       "Technische uitwerking voorbereiden",
				Description: "Automatisch gegenereerd door de mock provider.",
			},
		},
	}
}
