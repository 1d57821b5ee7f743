// Package tickets turns untrusted model drafts into tickets with unique ids.
package tickets

import (
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/schema"
)

// ReasonDuplicate marks a draft dropped because an identical ticket with the
// same id was already accepted.
const ReasonDuplicate = "duplicate"

// Rejection describes a draft that did not make it into the collection.
type Rejection struct {
	Index  int    // 0-based position in the draft list
	ID     string // id supplied by the model, if any
	Reason string
}

// Normalizer validates drafts and assigns identity.
type Normalizer struct {
	validator *schema.Validator
	prefix    string
}

// NewNormalizer creates a normalizer whose generated ids carry prefix.
func NewNormalizer(prefix string) *Normalizer {
	return &Normalizer{
		validator: schema.New(),
		prefix:    prefix,
	}
}

// Normalize converts drafts into tickets.
//
// Drafts with a blank title or an unknown type are dropped. Drafts without an
// id get TICKET-<prefix>-<position>. A draft whose id was already used is
// dropped if its content matches the earlier ticket, otherwise it is given a
// fresh id. Input order is preserved.
func (n *Normalizer) Normalize(drafts []models.TicketDraft) ([]models.Ticket, []Rejection) {
	seq := NewIDSequence(n.prefix)
	out := make([]models.Ticket, 0, len(drafts))
	byID := make(map[string]int, len(drafts))
	var rejected []Rejection

	for i, d := range drafts {
		id := strings.TrimSpace(d.ID)

		typ, err := n.validator.Validate(d)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, ID: id, Reason: schema.Reason(err)})
			continue
		}

		t := models.Ticket{
			Type:               typ,
			Title:              strings.TrimSpace(d.Title),
			Description:        strings.TrimSpace(d.Description),
			AcceptanceCriteria: schema.CleanCriteria(d.AcceptanceCriteria),
			Source:             cleanSource(d.Source),
		}

		switch {
		case id == "":
			t.ID = seq.Next(i + 1)
		case seq.Reserve(id):
			t.ID = id
		default:
			if prev, ok := byID[id]; ok && sameContent(out[prev], t) {
				rejected = append(rejected, Rejection{Index: i, ID: id, Reason: ReasonDuplicate})
				continue
			}
			t.ID = seq.Next(i + 1)
		}

		byID[t.ID] = len(out)
		out = append(out, t)
	}

	return out, rejected
}

// Normalize is a convenience wrapper using a fresh run prefix.
func Normalize(drafts []models.TicketDraft) ([]models.Ticket, []Rejection) {
	return NewNormalizer(NewRunPrefix()).Normalize(drafts)
}

// Drafts converts tickets back to drafts, e.g. tickets posted by a caller
// for export.
func Drafts(tickets []models.Ticket) []models.TicketDraft {
	out := make([]models.TicketDraft, len(tickets))
	for i, t := range tickets {
		out[i] = models.TicketDraft(t)
	}
	return out
}

func sameContent(a, b models.Ticket) bool {
	return a.Type == b.Type && a.Title == b.Title && a.Description == b.Description
}

func cleanSource(s *models.Source) *models.Source {
	if s == nil {
		return nil
	}
	c := models.Source{
		Timestamp: strings.TrimSpace(s.Timestamp),
		Fragment:  strings.TrimSpace(s.Fragment),
	}
	if c.Timestamp == "" && c.Fragment == "" {
		return nil
	}
	return &c
}
