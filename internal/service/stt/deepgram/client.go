// Package deepgram provides a Deepgram pre-recorded audio transcription client.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// EUEndpoint is the EU data-residency deployment of the listen API.
const EUEndpoint = "https://api.eu.deepgram.com/v1/listen"

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// Config holds Deepgram request settings.
type Config struct {
	Endpoint   string
	Model      string
	Language   string
	APIKey     string
	HTTPClient *http.Client
}

// DefaultConfig returns the deployment defaults: EU endpoint, nova-2, Dutch.
func DefaultConfig() Config {
	return Config{
		Endpoint: EUEndpoint,
		Model:    "nova-2",
		Language: "nl",
	}
}

// Client transcribes audio with Deepgram.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Deepgram client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperr.Configurationf(apperr.StageTranscription, "Deepgram API key not provided")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = EUEndpoint
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, client: hc}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "deepgram"
}

// Transcribe posts the audio and narrows the response to a TranscriptionResult.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.TranscriptionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(audio))
	if err != nil {
		return nil, apperr.Internal(apperr.StageTranscription, err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.client.Do(req)
	if err != nil {
		if e := apperr.FromContext(apperr.StageTranscription, err); e != nil {
			return nil, e
		}
		return nil, apperr.Upstream(apperr.StageTranscription, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Deepgram returned an error")
		return nil, apperr.Provider(apperr.StageTranscription, resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if e := apperr.FromContext(apperr.StageTranscription, err); e != nil {
			return nil, e
		}
		return nil, apperr.Upstream(apperr.StageTranscription, err)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Malformed(apperr.StageTranscription, truncate(raw), err)
	}

	return parsed.toResult(truncate(raw))
}

func (c *Client) requestURL() string {
	q := url.Values{}
	q.Set("model", c.cfg.Model)
	q.Set("language", c.cfg.Language)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("paragraphs", "true")
	q.Set("diarize", "true")
	q.Set("utterances", "true")
	return c.cfg.Endpoint + "?" + q.Encode()
}

// response is the subset of the listen API response the pipeline relies on.
type response struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Speaker    *int    `json:"speaker"`
		} `json:"utterances"`
	} `json:"results"`
}

func (r *response) toResult(raw string) (*models.TranscriptionResult, error) {
	if r.Results == nil || len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return nil, apperr.Empty(apperr.StageTranscription, "no transcription result received")
	}
	alt := r.Results.Channels[0].Alternatives[0]

	if alt.Confidence < 0 || alt.Confidence > 1 {
		return nil, apperr.Malformed(apperr.StageTranscription, raw,
			fmt.Errorf("confidence %v outside [0,1]", alt.Confidence))
	}

	res := &models.TranscriptionResult{
		Transcript: alt.Transcript,
		Duration:   r.Metadata.Duration,
		Confidence: alt.Confidence,
	}

	for i, u := range r.Results.Utterances {
		if u.Start < 0 || u.End < u.Start {
			return nil, apperr.Malformed(apperr.StageTranscription, raw,
				fmt.Errorf("utterance %d has invalid bounds [%v, %v]", i, u.Start, u.End))
		}
		res.Utterances = append(res.Utterances, models.Utterance{
			Start:      u.Start,
			End:        u.End,
			Transcript: u.Transcript,
			Speaker:    u.Speaker,
		})
	}

	return res, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
