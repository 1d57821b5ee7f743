package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/service/export"
	"github.com/frankwiersma/speech-to-jira/internal/service/pipeline"
)

var (
	sttProvider        string
	generationProvider string
	verbose            bool
)

var processCmd = &cobra.Command{
	Use:   "process <audio>",
	Short: "Transcribe a recording and generate tickets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPipeline()
		if err != nil {
			return err
		}
		in, err := readAudioFile(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		status("Processing %s (%d bytes, %s)...", in.Filename, len(in.Data), in.MimeType)
		res, err := svc.ProcessAudioAndGenerate(ctx, in)
		if err != nil {
			return describe(err)
		}
		printSummary(res.Generation, len(res.Dropped))
		return writeTickets(cmd, res.Generation.Tickets)
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Transcribe a recording and print the timestamped transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPipeline()
		if err != nil {
			return err
		}
		in, err := readAudioFile(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		status("Transcribing %s...", in.Filename)
		res, err := svc.ProcessAudio(ctx, in)
		if err != nil {
			return describe(err)
		}
		status("Duration %.1fs, confidence %.2f, %d utterances", res.Duration, res.Confidence, len(res.Utterances))
		return writeResult(cmd.OutOrStdout(), []byte(res.TimestampedTranscript))
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <transcript.txt>",
	Short: "Generate tickets from a transcript file (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPipeline()
		if err != nil {
			return err
		}
		transcript, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		status("Generating tickets...")
		res, err := svc.GenerateFromTranscript(ctx, string(transcript), config.Credentials{})
		if err != nil {
			return describe(err)
		}
		printSummary(res.Generation, len(res.Dropped))
		return writeTickets(cmd, res.Generation.Tickets)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{processCmd, transcribeCmd, generateCmd} {
		cmd.Flags().StringVar(&sttProvider, "stt", "", "override STT_PROVIDER (deepgram, google, whisper, mock)")
		cmd.Flags().StringVar(&generationProvider, "generation", "", "override GENERATION_PROVIDER (azure, openai, anthropic, mock)")
		cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
		rootCmd.AddCommand(cmd)
	}
}

// newPipeline builds an in-process pipeline from the service configuration
// and the provider flags.
func newPipeline() (*pipeline.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if sttProvider != "" {
		cfg.STT.Provider = sttProvider
	}
	if generationProvider != "" {
		cfg.Generation.Provider = generationProvider
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Output: os.Stderr})

	return pipeline.New(pipeline.ConfigFrom(cfg)), nil
}

func readAudioFile(path string) (pipeline.AudioInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.AudioInput{}, fmt.Errorf("read audio: %w", err)
	}
	return pipeline.AudioInput{
		Data:     data,
		MimeType: audioType(path, data),
		Filename: filepath.Base(path),
	}, nil
}

// audioType sniffs the content and falls back to the file extension.
func audioType(path string, data []byte) string {
	if mt := mimetype.Detect(data); strings.HasPrefix(mt.String(), "audio/") {
		return mt.String()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/m4a"
	case ".webm":
		return "audio/webm"
	case ".mp4":
		return "audio/mp4"
	default:
		return "audio/mpeg"
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		var sb bytes.Buffer
		if _, err := sb.ReadFrom(cmd.InOrStdin()); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []byte(sb.String()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeTickets(cmd *cobra.Command, tickets []models.Ticket) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	data, err := export.Serialize(tickets, format)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), data)
}

func printSummary(gen *models.GenerationResult, dropped int) {
	stories, tasks := models.CountByType(gen.Tickets)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprintf(os.Stderr, "✓ %d tickets (%d stories, %d tasks)\n", len(gen.Tickets), stories, tasks)
	if dropped > 0 {
		yellow.Fprintf(os.Stderr, "  %d drafts dropped during validation\n", dropped)
	}
	if gen.Summary != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", gen.Summary)
	}
}

// describe turns a pipeline error into a one-line message with its stage.
func describe(err error) error {
	stage := apperr.StageOf(err)
	if stage == "" {
		return err
	}
	return fmt.Errorf("%s failed (%s): %w", stage, apperr.KindOf(err), err)
}
