package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

var sample = []models.Ticket{
	{ID: "TICKET-1", Type: models.TicketTask, Title: "Upgrade database", Description: "Move to v16"},
	{
		ID:                 "TICKET-2",
		Type:               models.TicketStory,
		Title:              `Login with "SSO", fast`,
		Description:        "Als gebruiker wil ik inloggen,\nzodat ik verder kan.",
		AcceptanceCriteria: []string{"Login werkt", `Foutmelding "ongeldig"`},
	},
	{ID: "TICKET-3", Type: models.TicketStory, Title: "Logout", Description: "Sessie beëindigen"},
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"json": FormatJSON, "CSV": FormatCSV, "markdown": FormatMarkdown, " md ": FormatMarkdown}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFormatMetadata(t *testing.T) {
	if FormatCSV.Filename() != "jira-tickets.csv" || FormatMarkdown.Filename() != "jira-tickets.md" || FormatJSON.Filename() != "jira-tickets.json" {
		t.Error("unexpected filenames")
	}
	if !strings.HasPrefix(FormatCSV.ContentType(), "text/csv") {
		t.Errorf("unexpected csv content type %s", FormatCSV.ContentType())
	}
}

func TestJSON(t *testing.T) {
	b, err := Serialize(sample, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []models.Ticket
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 3 || got[1].AcceptanceCriteria[1] != `Foutmelding "ongeldig"` {
		t.Errorf("unexpected round trip: %+v", got)
	}
	if !strings.Contains(string(b), "\n  {") {
		t.Error("expected two-space indented output")
	}
}

func TestCSV_Layout(t *testing.T) {
	got := CSV(sample[:1])
	want := "ID,Type,Title,Description,Acceptance Criteria\n" +
		`TICKET-1,Task,"Upgrade database","Move to v16",""`
	if got != want {
		t.Errorf("unexpected CSV\n got: %q\nwant: %q", got, want)
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	r := csv.NewReader(strings.NewReader(CSV(sample)))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	if len(records) != len(sample)+1 {
		t.Fatalf("expected %d records, got %d", len(sample)+1, len(records))
	}
	for i, tk := range sample {
		rec := records[i+1]
		if rec[0] != tk.ID || rec[1] != string(tk.Type) || rec[2] != tk.Title || rec[3] != tk.Description {
			t.Errorf("record %d does not round trip: %q", i, rec)
		}
		if rec[4] != strings.Join(tk.AcceptanceCriteria, "; ") {
			t.Errorf("record %d criteria: got %q", i, rec[4])
		}
	}
}

func TestMarkdown_Ordering(t *testing.T) {
	md := Markdown(sample)

	stories := strings.Index(md, "## Stories")
	tasks := strings.Index(md, "## Tasks")
	login := strings.Index(md, "### Login")
	logout := strings.Index(md, "### Logout")
	upgrade := strings.Index(md, "### Upgrade database")

	if !(stories < login && login < logout && logout < tasks && tasks < upgrade) {
		t.Errorf("unexpected ordering: stories=%d login=%d logout=%d tasks=%d upgrade=%d", stories, login, logout, tasks, upgrade)
	}
	if !strings.Contains(md, "- [ ] Login werkt\n- [ ] Foutmelding \"ongeldig\"") {
		t.Error("expected unchecked acceptance criteria checklist")
	}
	if !strings.HasPrefix(md, "# Generated Jira Tickets\n\n## Stories\n\n### Login") {
		t.Errorf("unexpected document start: %q", md[:60])
	}
}

func TestMarkdown_TasksHaveNoCriteria(t *testing.T) {
	md := Markdown([]models.Ticket{
		{ID: "T", Type: models.TicketTask, Title: "Task", Description: "d", AcceptanceCriteria: []string{"hidden"}},
	})
	if strings.Contains(md, "hidden") || strings.Contains(md, "Acceptance Criteria") {
		t.Errorf("tasks must not render acceptance criteria: %q", md)
	}
}

func TestMarkdown_OmitsEmptySections(t *testing.T) {
	md := Markdown(sample[:1])
	if strings.Contains(md, "## Stories") {
		t.Error("expected no Stories section without stories")
	}
	if !strings.Contains(md, "## Tasks") {
		t.Error("expected Tasks section")
	}
}

func TestSerialize_Empty(t *testing.T) {
	tests := map[Format]string{
		FormatJSON:     "[]",
		FormatCSV:      "ID,Type,Title,Description,Acceptance Criteria",
		FormatMarkdown: "# Generated Jira Tickets\n",
	}
	for format, want := range tests {
		got, err := Serialize(nil, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		if string(got) != want {
			t.Errorf("%s: expected %q, got %q", format, want, got)
		}
	}
}

func TestSerialize_UnknownFormat(t *testing.T) {
	if _, err := Serialize(sample, Format("pdf")); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
