// Package whisper provides an OpenAI Whisper transcription client.
package whisper

import (
	"bytes"
	"context"
	"errors"
	"math"
	"mime"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Config holds Whisper request settings.
type Config struct {
	Model      string
	Language   string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultConfig returns whisper-1 with Dutch as the spoken language.
func DefaultConfig() Config {
	return Config{
		Model:    openai.Whisper1,
		Language: "nl",
	}
}

// Client transcribes audio with the Whisper API. Whisper segments carry no
// speaker information, so utterance speakers are left unset.
type Client struct {
	client *openai.Client
	cfg    Config
}

// New creates a Whisper client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperr.Configurationf(apperr.StageTranscription, "OpenAI API key not provided")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "whisper"
}

// Transcribe uploads the audio and converts verbose_json segments to utterances.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.TranscriptionResult, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: fileName(mimeType),
		Reader:   bytes.NewReader(audio),
		Language: c.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, mapError(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" && len(resp.Segments) == 0 {
		return nil, apperr.Empty(apperr.StageTranscription, "no transcription result received")
	}

	res := &models.TranscriptionResult{
		Transcript: text,
		Duration:   resp.Duration,
	}

	var probSum float64
	for _, seg := range resp.Segments {
		if seg.Start < 0 || seg.End < seg.Start {
			return nil, apperr.Malformed(apperr.StageTranscription, "", errors.New("segment has invalid bounds"))
		}
		res.Utterances = append(res.Utterances, models.Utterance{
			Start:      seg.Start,
			End:        seg.End,
			Transcript: strings.TrimSpace(seg.Text),
		})
		probSum += math.Exp(seg.AvgLogprob)
	}
	if n := len(resp.Segments); n > 0 {
		res.Confidence = math.Min(1, probSum/float64(n))
	}

	return res, nil
}

// fileName picks an upload name whose extension tells Whisper the container.
func fileName(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(mimeType)
	}
	switch mt {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "audio.wav"
	case "audio/m4a", "audio/x-m4a", "audio/mp4":
		return "audio.m4a"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.mp3"
	}
}

func mapError(err error) error {
	if e := apperr.FromContext(apperr.StageTranscription, err); e != nil {
		return e
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Provider(apperr.StageTranscription, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Provider(apperr.StageTranscription, reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	return apperr.Upstream(apperr.StageTranscription, err)
}
