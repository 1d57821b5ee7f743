package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

var exportCmd = &cobra.Command{
	Use:   "export <tickets.json>",
	Short: "Convert saved tickets to csv, markdown or json (use - for stdin)",
	Long: `Convert saved tickets to another export format.

The input is either a JSON array of tickets or a response body from
/api/process or /api/generate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		tickets, err := decodeTickets(raw)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			warn("no tickets in %s", args[0])
		}
		return writeTickets(cmd, tickets)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

// decodeTickets accepts a bare ticket array or an object with a tickets key.
func decodeTickets(raw []byte) ([]models.Ticket, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty ticket input")
	}

	var tickets []models.Ticket
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &tickets); err != nil {
			return nil, fmt.Errorf("decode tickets: %w", err)
		}
		return tickets, nil
	}

	var wrapped struct {
		Tickets *[]models.Ticket `json:"tickets"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}
	if wrapped.Tickets == nil {
		return nil, fmt.Errorf("decode tickets: no tickets key in input")
	}
	return *wrapped.Tickets, nil
}
