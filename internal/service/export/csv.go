package export

import (
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

const csvHeader = "ID,Type,Title,Description,Acceptance Criteria"

// CSV renders tickets with a fixed column order. Title, Description and
// Acceptance Criteria are always quoted; ID and Type only when needed.
// Acceptance criteria are joined with "; ".
func CSV(tickets []models.Ticket) string {
	rows := make([]string, 0, len(tickets)+1)
	rows = append(rows, csvHeader)
	for _, t := range tickets {
		rows = append(rows, strings.Join([]string{
			field(t.ID),
			field(string(t.Type)),
			quote(t.Title),
			quote(t.Description),
			quote(strings.Join(t.AcceptanceCriteria, "; ")),
		}, ","))
	}
	return strings.Join(rows, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
