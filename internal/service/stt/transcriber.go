// Package stt defines the speech-to-text client used by the pipeline and
// builds provider implementations from configuration.
package stt

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/service/stt/deepgram"
	"github.com/frankwiersma/speech-to-jira/internal/service/stt/google"
	"github.com/frankwiersma/speech-to-jira/internal/service/stt/mock"
	"github.com/frankwiersma/speech-to-jira/internal/service/stt/whisper"
)

// Provider names.
const (
	ProviderDeepgram = "deepgram"
	ProviderGoogle   = "google"
	ProviderWhisper  = "whisper"
	ProviderMock     = "mock"
)

// Transcriber converts a complete audio recording into text.
//
// Implementations fill Transcript, Duration, Confidence and Utterances.
// TimestampedTranscript is derived by the caller from the utterances.
type Transcriber interface {
	// Transcribe sends audio to the provider. Input validation is the
	// caller's job; audio is assumed non-empty and of an allowed type.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.TranscriptionResult, error)

	// Name returns the provider name.
	Name() string
}

// Options tune providers. Zero values fall back to provider defaults.
type Options struct {
	Endpoint       string
	Model          string
	Language       string
	GoogleEndpoint string
	GoogleLanguage string
	WhisperModel   string
	WhisperBaseURL string
	HTTPClient     *http.Client
}

// OptionsFromConfig builds provider options from the STT config.
func OptionsFromConfig(cfg config.STTConfig) Options {
	return Options{
		Endpoint:       cfg.Endpoint,
		Model:          cfg.Model,
		Language:       cfg.Language,
		GoogleEndpoint: cfg.GoogleEndpoint,
		GoogleLanguage: cfg.GoogleLanguage,
		WhisperModel:   cfg.WhisperModel,
	}
}

// New creates a Transcriber for provider using creds. Callers should close
// the result when it implements io.Closer.
func New(ctx context.Context, provider string, opts Options, creds config.Credentials) (Transcriber, error) {
	switch strings.ToLower(provider) {
	case ProviderDeepgram, "":
		cfg := deepgram.DefaultConfig()
		if opts.Endpoint != "" {
			cfg.Endpoint = opts.Endpoint
		}
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.Language != "" {
			cfg.Language = opts.Language
		}
		cfg.APIKey = creds.DeepgramKey
		cfg.HTTPClient = opts.HTTPClient
		return deepgram.New(cfg)
	case ProviderGoogle:
		cfg := google.DefaultConfig()
		if opts.GoogleEndpoint != "" {
			cfg.Endpoint = opts.GoogleEndpoint
		}
		if opts.GoogleLanguage != "" {
			cfg.LanguageCode = opts.GoogleLanguage
		}
		return google.New(ctx, cfg)
	case ProviderWhisper:
		cfg := whisper.DefaultConfig()
		if opts.WhisperModel != "" {
			cfg.Model = opts.WhisperModel
		}
		if opts.Language != "" {
			cfg.Language = opts.Language
		}
		cfg.BaseURL = opts.WhisperBaseURL
		cfg.APIKey = creds.OpenAIKey
		cfg.HTTPClient = opts.HTTPClient
		return whisper.New(cfg)
	case ProviderMock:
		return mock.New(), nil
	default:
		return nil, apperr.Configurationf(apperr.StageTranscription, "unsupported STT provider: %s", provider)
	}
}

// CheckCredentials reports an authorization error when creds lack the key
// provider needs. Google uses application default credentials and is not
// checked here.
func CheckCredentials(provider string, creds config.Credentials) error {
	switch strings.ToLower(provider) {
	case ProviderDeepgram, "":
		if creds.DeepgramKey == "" {
			return apperr.Authorizationf("Deepgram API key required")
		}
	case ProviderWhisper:
		if creds.OpenAIKey == "" {
			return apperr.Authorizationf("OpenAI API key required for Whisper transcription")
		}
	}
	return nil
}

// Close releases t if it holds resources.
func Close(t Transcriber) error {
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
