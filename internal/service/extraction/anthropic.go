package extraction

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// Anthropic implements Extractor using the Messages API. The API has no JSON
// response mode, so the instruction alone asks for a JSON object.
type Anthropic struct {
	client *anthropic.Client
	model  string
	opts   Options
}

// NewAnthropic creates an Anthropic extractor.
func NewAnthropic(opts Options, creds config.Credentials) (*Anthropic, error) {
	if creds.AnthropicKey == "" {
		return nil, apperr.Configurationf(apperr.StageGeneration, "Anthropic API key not provided")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(creds.AnthropicKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := anthropic.NewClient(reqOpts...)

	model := opts.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &Anthropic{
		client: &client,
		model:  model,
		opts:   opts.withDefaults(),
	}, nil
}

// Name returns the provider name.
func (a *Anthropic) Name() string {
	return ProviderAnthropic
}

// Extract sends the transcript and parses the text blocks of the reply.
func (a *Anthropic) Extract(ctx context.Context, transcript string) (*models.GenerationDraft, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: a.opts.Instruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(a.opts.UserPrefix + transcript)),
		},
	})
	if err != nil {
		return nil, anthropicError(err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return Parse(content.String())
}

func anthropicError(err error) error {
	if e := apperr.FromContext(apperr.StageGeneration, err); e != nil {
		return e
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apperr.Provider(apperr.StageGeneration, apiErr.StatusCode, apiErr.RawJSON())
	}
	return apperr.Upstream(apperr.StageGeneration, err)
}
