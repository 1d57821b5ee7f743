package extraction

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

// OpenAI implements Extractor with the chat completions API, either on an
// Azure OpenAI deployment or on api.openai.com.
type OpenAI struct {
	client openai.Client
	model  string
	name   string
	opts   Options
}

// NewAzure creates an extractor for an Azure OpenAI deployment. The
// deployment name is sent as the model.
func NewAzure(opts Options, creds config.Credentials) (*OpenAI, error) {
	if creds.AzureKey == "" || creds.AzureEndpoint == "" {
		return nil, apperr.Configurationf(apperr.StageGeneration, "Azure OpenAI key or endpoint not provided")
	}

	deployment := creds.AzureDeployment
	if deployment == "" {
		deployment = "gpt-4o"
	}
	apiVersion := creds.AzureAPIVersion
	if apiVersion == "" {
		apiVersion = "2025-01-01-preview"
	}

	reqOpts := []option.RequestOption{
		azure.WithEndpoint(strings.TrimRight(creds.AzureEndpoint, "/"), apiVersion),
		azure.WithAPIKey(creds.AzureKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  deployment,
		name:   ProviderAzure,
		opts:   opts.withDefaults(),
	}, nil
}

// NewOpenAI creates an extractor for the public OpenAI API.
func NewOpenAI(opts Options, creds config.Credentials) (*OpenAI, error) {
	if creds.OpenAIKey == "" {
		return nil, apperr.Configurationf(apperr.StageGeneration, "OpenAI API key not provided")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(creds.OpenAIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	model := opts.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  model,
		name:   ProviderOpenAI,
		opts:   opts.withDefaults(),
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return o.name
}

// Extract requests a JSON object completion and parses it.
func (o *OpenAI) Extract(ctx context.Context, transcript string) (*models.GenerationDraft, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.opts.Instruction),
			openai.UserMessage(o.opts.UserPrefix + transcript),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		MaxCompletionTokens: openai.Int(o.opts.MaxTokens),
	})
	if err != nil {
		return nil, openAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperr.Empty(apperr.StageGeneration, "generation provider returned no choices")
	}

	return Parse(resp.Choices[0].Message.Content)
}

func openAIError(err error) error {
	if e := apperr.FromContext(apperr.StageGeneration, err); e != nil {
		return e
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apperr.Provider(apperr.StageGeneration, apiErr.StatusCode, apiErr.Message)
	}
	return apperr.Upstream(apperr.StageGeneration, err)
}
