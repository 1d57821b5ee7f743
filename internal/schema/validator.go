// Package schema validates model-produced ticket drafts against the ticket
// contract before they are trusted.
package schema

import (
	"errors"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Validation failures. Each maps to a normalizer drop reason.
var (
	ErrMissingTitle = errors.New("title is empty")
	ErrInvalidType  = errors.New("type must be Story or Task")
)

// Reason returns the short label used in logs and metrics for err.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingTitle):
		return "missing_title"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	default:
		return "invalid"
	}
}

// Validator checks ticket drafts.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// Validate reports whether d can become a Ticket. It returns the canonical
// ticket type so callers do not repeat the case-insensitive match.
func (v *Validator) Validate(d models.TicketDraft) (models.TicketType, error) {
	typ, ok := CanonicalType(string(d.Type))
	if !ok {
		return "", ErrInvalidType
	}
	if strings.TrimSpace(d.Title) == "" {
		return "", ErrMissingTitle
	}
	return typ, nil
}

// CanonicalType matches s against the ticket types, ignoring case and
// surrounding whitespace.
func CanonicalType(s string) (models.TicketType, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(models.TicketStory)):
		return models.TicketStory, true
	case strings.EqualFold(s, string(models.TicketTask)):
		return models.TicketTask, true
	default:
		return "", false
	}
}

// CleanCriteria trims each criterion and drops the blank ones. It returns nil
// when nothing is left so the field is omitted on output.
func CleanCriteria(criteria []string) []string {
	var out []string
	for _, c := range criteria {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
