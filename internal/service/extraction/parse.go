package extraction

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

var errMissingTickets = errors.New(`response has no "tickets" array`)

// wireResult is the JSON object the model is asked to produce.
type wireResult struct {
	Tickets *[]models.TicketDraft `json:"tickets"`
	Summary string                `json:"summary"`
}

// Parse decodes model output into a draft. Empty content is an EmptyResult
// error; anything that is not the expected JSON object is MalformedResponse.
func Parse(content string) (*models.GenerationDraft, error) {
	body := stripFences(content)
	if body == "" {
		return nil, apperr.Empty(apperr.StageGeneration, "generation provider returned no content")
	}

	var w wireResult
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, apperr.Malformed(apperr.StageGeneration, content, err)
	}
	if w.Tickets == nil {
		return nil, apperr.Malformed(apperr.StageGeneration, content, errMissingTickets)
	}

	return &models.GenerationDraft{
		Tickets: *w.Tickets,
		Summary: strings.TrimSpace(w.Summary),
	}, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
