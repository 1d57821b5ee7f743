// Package export renders ticket collections as JSON, CSV or Markdown files.
package export

import (
	"encoding/json"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Format is an export representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a caller-supplied format name. "md" is accepted as an
// alias for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", apperr.Validationf("unsupported export format: %q", s)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename returns the download name for f.
func (f Format) Filename() string {
	switch f {
	case FormatCSV:
		return "jira-tickets.csv"
	case FormatMarkdown:
		return "jira-tickets.md"
	default:
		return "jira-tickets.json"
	}
}

// Serialize renders tickets in format. An empty collection yields a valid
// empty document; the only error is an unknown format.
func Serialize(tickets []models.Ticket, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(tickets)
	case FormatCSV:
		return []byte(CSV(tickets)), nil
	case FormatMarkdown:
		return []byte(Markdown(tickets)), nil
	default:
		return nil, apperr.Validationf("unsupported export format: %q", string(format))
	}
}

// JSON renders tickets as a pretty-printed array.
func JSON(tickets []models.Ticket) ([]byte, error) {
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	b, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return nil, apperr.Internal(apperr.StageExport, err)
	}
	return b, nil
}
