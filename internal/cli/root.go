// Package cli implements the ticketctl command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	outputPath   string
	exportFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ticketctl",
	Short: "Turn meeting recordings into Jira-style tickets",
	Long: `ticketctl runs the speech-to-jira pipeline from the command line.

It can run the pipeline in-process using the service configuration
(environment variables and CONFIG_FILE), or upload a recording to a
running service.

Examples:
  ticketctl process refinement.mp3 --format markdown -o tickets.md
  ticketctl transcribe refinement.mp3
  ticketctl generate transcript.txt --format csv
  ticketctl export tickets.json --format csv -o tickets.csv
  ticketctl upload refinement.mp3 --server http://localhost:4000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write the result to this file instead of stdout")
	rootCmd.PersistentFlags().StringVarP(&exportFormat, "format", "f", "json", "export format: json, csv, markdown")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		return err
	}
	return nil
}

// writeResult writes data to the --output file or to w.
func writeResult(w io.Writer, data []byte) error {
	if outputPath == "" {
		_, err := w.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	fmt.Fprintln(os.Stderr, color.GreenString("✓ Written to %s", outputPath))
	return nil
}

func status(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.CyanString(format, args...))
}
