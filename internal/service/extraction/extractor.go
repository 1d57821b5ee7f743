// Package extraction turns a timestamped transcript into ticket drafts using
// a structured-generation provider.
package extraction

import (
	"context"
	"net/http"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Provider names.
const (
	ProviderAzure     = "azure"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Extractor produces ticket drafts from a transcript.
type Extractor interface {
	// Extract sends one generation request and parses the reply.
	Extract(ctx context.Context, transcript string) (*models.GenerationDraft, error)

	// Name returns the provider name.
	Name() string
}

// Options tune a provider. Zero values fall back to defaults.
type Options struct {
	Model       string
	Instruction string
	UserPrefix  string
	MaxTokens   int64
	BaseURL     string // overrides the provider endpoint, mainly for tests
	HTTPClient  *http.Client
}

// OptionsFromConfig builds provider options from the generation config.
func OptionsFromConfig(cfg config.GenerationConfig) Options {
	return Options{
		Model:       cfg.Model,
		Instruction: cfg.Instruction,
		UserPrefix:  cfg.UserPrefix,
		MaxTokens:   cfg.MaxTokens,
	}
}

func (o Options) withDefaults() Options {
	if o.Instruction == "" {
		o.Instruction = DefaultInstruction
	}
	if o.UserPrefix == "" {
		o.UserPrefix = DefaultUserPrefix
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 8000
	}
	return o
}

// New creates an Extractor for provider using creds.
func New(provider string, opts Options, creds config.Credentials) (Extractor, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(provider) {
	case ProviderAzure, "":
		return NewAzure(opts, creds)
	case ProviderOpenAI:
		return NewOpenAI(opts, creds)
	case ProviderAnthropic:
		return NewAnthropic(opts, creds)
	case ProviderMock:
		return NewMock(), nil
	default:
		return nil, apperr.Configurationf(apperr.StageGeneration, "unsupported generation provider: %s", provider)
	}
}

// CheckCredentials reports an authorization error when creds lack what
// provider needs. It makes no network calls.
func CheckCredentials(provider string, creds config.Credentials) error {
	var missing []string
	switch strings.ToLower(provider) {
	case ProviderAzure, "":
		if creds.AzureKey == "" {
			missing = append(missing, "azure key")
		}
		if creds.AzureEndpoint == "" {
			missing = append(missing, "azure endpoint")
		}
	case ProviderOpenAI:
		if creds.OpenAIKey == "" {
			missing = append(missing, "openai key")
		}
	case ProviderAnthropic:
		if creds.AnthropicKey == "" {
			missing = append(missing, "anthropic key")
		}
	}
	if len(missing) > 0 {
		return apperr.Authorizationf("generation credentials not configured: %s", strings.Join(missing, ", "))
	}
	return nil
}
