package models

// TicketType is the kind of work item.
type TicketType string

const (
	TicketStory TicketType = "Story"
	TicketTask  TicketType = "Task"
)

// Source cites where in the transcript a ticket was discussed.
type Source struct {
	Timestamp string `json:"timestamp,omitempty"`
	Fragment  string `json:"fragment,omitempty"`
}

// TicketDraft is a ticket as returned by the model. Nothing in it is trusted.
type TicketDraft struct {
	ID                 string     `json:"id,omitempty"`
	Type               TicketType `json:"type"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AcceptanceCriteria []string   `json:"acceptanceCriteria,omitempty"`
	Source             *Source    `json:"source,omitempty"`
}

// Ticket is a normalized work item. ID is unique within its collection.
type Ticket struct {
	ID                 string     `json:"id"`
	Type               TicketType `json:"type"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AcceptanceCriteria []string   `json:"acceptanceCriteria,omitempty"`
	Source             *Source    `json:"source,omitempty"`
}

// GenerationDraft is the parsed model output before normalization.
type GenerationDraft struct {
	Tickets []TicketDraft
	Summary string
}

// GenerationResult is the normalized output of the generation stage.
type GenerationResult struct {
	Tickets []Ticket `json:"tickets"`
	Summary string   `json:"summary"`
}

// CountByType returns the number of stories and tasks in tickets.
func CountByType(tickets []Ticket) (stories, tasks int) {
	for _, t := range tickets {
		switch t.Type {
		case TicketStory:
			stories++
		case TicketTask:
			tasks++
		}
	}
	return stories, tasks
}
