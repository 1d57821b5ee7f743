package extraction

import (
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
)

func TestParse(t *testing.T) {
	content := `{"tickets":[{"type":"Story","title":"Login","description":"As a user","acceptanceCriteria":["works"],"source":{"timestamp":"[00:42]","fragment":"we need login"}}],"summary":" Short "}`

	got, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(got.Tickets))
	}
	if got.Tickets[0].Source == nil || got.Tickets[0].Source.Timestamp != "[00:42]" {
		t.Errorf("expected source timestamp, got %+v", got.Tickets[0].Source)
	}
	if got.Summary != "Short" {
		t.Errorf("expected trimmed summary, got %q", got.Summary)
	}
}

func TestParse_StripsCodeFences(t *testing.T) {
	tests := []string{
		"```json\n{\"tickets\":[],\"summary\":\"s\"}\n```",
		"```\n{\"tickets\":[],\"summary\":\"s\"}\n```",
		"```json{\"tickets\":[],\"summary\":\"s\"}```",
	}
	for _, content := range tests {
		got, err := Parse(content)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", content, err)
		}
		if got.Summary != "s" {
			t.Errorf("expected summary 's', got %q", got.Summary)
		}
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    apperr.Kind
	}{
		{"empty", "", apperr.KindEmptyResult},
		{"whitespace", "  \n ", apperr.KindEmptyResult},
		{"not json", "Here are your tickets!", apperr.KindMalformedResponse},
		{"missing tickets", `{"summary":"x"}`, apperr.KindMalformedResponse},
		{"tickets not array", `{"tickets":"none"}`, apperr.KindMalformedResponse},
		{"array root", `[{"type":"Task"}]`, apperr.KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.KindOf(err); got != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, got)
			}
			if got := apperr.StageOf(err); got != apperr.StageGeneration {
				t.Errorf("expected generation stage, got %s", got)
			}
		})
	}
}

func TestParse_MalformedKeepsRawContentOutOfPublicMessage(t *testing.T) {
	_, err := Parse("secret model output")
	e, ok := apperr.As(err)
	if !ok {
		t.Fatal("expected apperr.Error")
	}
	if e.Body != "secret model output" {
		t.Errorf("expected raw content on error body, got %q", e.Body)
	}
	if msg := apperr.Public(err); msg == "" || msg == e.Body {
		t.Errorf("unexpected public message %q", msg)
	}
}
