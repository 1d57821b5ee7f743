package export

import (
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Markdown renders stories then tasks, each in input order. A section is
// left out when it has no tickets. Only stories list acceptance criteria.
func Markdown(tickets []models.Ticket) string {
	var stories, tasks []models.Ticket
	for _, t := range tickets {
		switch t.Type {
		case models.TicketStory:
			stories = append(stories, t)
		case models.TicketTask:
			tasks = append(tasks, t)
		}
	}

	lines := []string{"# Generated Jira Tickets", ""}

	if len(stories) > 0 {
		lines = append(lines, "## Stories", "")
		for _, s := range stories {
			lines = append(lines, ticketLines(s)...)
			if len(s.AcceptanceCriteria) > 0 {
				lines = append(lines, "**Acceptance Criteria:**")
				for _, ac := range s.AcceptanceCriteria {
					lines = append(lines, "- [ ] "+ac)
				}
				lines = append(lines, "")
			}
			lines = append(lines, "---", "")
		}
	}

	if len(tasks) > 0 {
		lines = append(lines, "## Tasks", "")
		for _, t := range tasks {
			lines = append(lines, ticketLines(t)...)
			lines = append(lines, "---", "")
		}
	}

	return strings.Join(lines, "\n")
}

func ticketLines(t models.Ticket) []string {
	return []string{
		"### " + t.Title,
		"**ID:** " + t.ID,
		"",
		"**Description:**",
		t.Description,
		"",
	}
}
