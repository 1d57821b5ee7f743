package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frankwiersma/speech-to-jira/internal/models"
)

var (
	serverURL     string
	uploadFlow    string
	uploadTimeout time.Duration
	byok          uploadKeys
)

// uploadKeys are per-request provider credentials sent as headers.
type uploadKeys struct {
	DeepgramKey     string
	AzureKey        string
	AzureEndpoint   string
	AzureDeployment string
	OpenAIKey       string
	AnthropicKey    string
}

func (k uploadKeys) apply(h http.Header) {
	set := func(name, value string) {
		if value != "" {
			h.Set(name, value)
		}
	}
	set("x-deepgram-key", k.DeepgramKey)
	set("x-azure-key", k.AzureKey)
	set("x-azure-endpoint", k.AzureEndpoint)
	set("x-azure-deployment", k.AzureDeployment)
	set("x-openai-key", k.OpenAIKey)
	set("x-anthropic-key", k.AnthropicKey)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <audio>",
	Short: "Upload a recording to a running speech-to-jira service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readAudioFile(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()

		client := &uploadClient{
			baseURL: serverURL,
			http:    &http.Client{},
			keys:    byok,
		}

		status("Uploading %s to %s (%s)...", in.Filename, serverURL, uploadFlow)
		start := time.Now()
		res, err := client.upload(ctx, uploadFlow, in.Filename, in.MimeType, in.Data)
		if err != nil {
			return err
		}
		status("Done in %v (run %s)", time.Since(start).Round(time.Millisecond), res.RunID)

		if uploadFlow == "transcribe" {
			return writeResult(cmd.OutOrStdout(), []byte(res.TimestampedTranscript))
		}
		printSummary(&models.GenerationResult{Tickets: res.Tickets, Summary: res.Summary}, res.Dropped)
		return writeTickets(cmd, res.Tickets)
	},
}

func init() {
	f := uploadCmd.Flags()
	f.StringVar(&serverURL, "server", "http://localhost:4000", "base URL of the speech-to-jira service")
	f.StringVar(&uploadFlow, "flow", "process", "endpoint to call: process or transcribe")
	f.DurationVar(&uploadTimeout, "timeout", 10*time.Minute, "overall request timeout")
	f.StringVar(&byok.DeepgramKey, "deepgram-key", "", "Deepgram API key sent with the request")
	f.StringVar(&byok.AzureKey, "azure-key", "", "Azure OpenAI key sent with the request")
	f.StringVar(&byok.AzureEndpoint, "azure-endpoint", "", "Azure OpenAI endpoint sent with the request")
	f.StringVar(&byok.AzureDeployment, "azure-deployment", "", "Azure OpenAI deployment sent with the request")
	f.StringVar(&byok.OpenAIKey, "openai-key", "", "OpenAI key sent with the request")
	f.StringVar(&byok.AnthropicKey, "anthropic-key", "", "Anthropic key sent with the request")
	rootCmd.AddCommand(uploadCmd)
}

// uploadResult is the union of the transcribe and process response bodies.
type uploadResult struct {
	Success               bool            `json:"success"`
	RunID                 string          `json:"runId"`
	Transcript            string          `json:"transcript"`
	TimestampedTranscript string          `json:"timestampedTranscript"`
	Duration              float64         `json:"duration"`
	Tickets               []models.Ticket `json:"tickets"`
	Summary               string          `json:"summary"`
	Count                 int             `json:"count"`
	Dropped               int             `json:"dropped"`
}

type serverError struct {
	Status  int
	Message string `json:"error"`
	Details string `json:"details"`
	Stage   string `json:"stage"`
}

func (e *serverError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	if e.Stage != "" {
		msg += " (stage " + e.Stage + ")"
	}
	return msg
}

type uploadClient struct {
	baseURL string
	http    *http.Client
	keys    uploadKeys
}

func (c *uploadClient) upload(ctx context.Context, flow, filename, mimeType string, audio []byte) (*uploadResult, error) {
	if flow != "process" && flow != "transcribe" {
		return nil, fmt.Errorf("unknown flow %q: use process or transcribe", flow)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.baseURL, "/") + "/api/" + flow
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.keys.apply(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		se := &serverError{Status: resp.StatusCode}
		if json.Unmarshal(raw, se) != nil || se.Message == "" {
			se.Message = strings.TrimSpace(string(raw))
		}
		return nil, se
	}

	var res uploadResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString(format, args...))
}
