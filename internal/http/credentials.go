package http

import (
	"net/http"
	"strings"

	"github.com/frankwiersma/speech-to-jira/internal/config"
)

// Bring-your-own-key headers. Any header left empty keeps the server default.
const (
	HeaderDeepgramKey     = "x-deepgram-key"
	HeaderAzureKey        = "x-azure-key"
	HeaderAzureEndpoint   = "x-azure-endpoint"
	HeaderAzureDeployment = "x-azure-deployment"
	HeaderAzureVersion    = "x-azure-version"
	HeaderOpenAIKey       = "x-openai-key"
	HeaderAnthropicKey    = "x-anthropic-key"
)

// credentialsFromRequest reads per-request credential overrides.
func credentialsFromRequest(r *http.Request) config.Credentials {
	get := func(name string) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
	return config.Credentials{
		DeepgramKey:     get(HeaderDeepgramKey),
		AzureKey:        get(HeaderAzureKey),
		AzureEndpoint:   get(HeaderAzureEndpoint),
		AzureDeployment: get(HeaderAzureDeployment),
		AzureAPIVersion: get(HeaderAzureVersion),
		OpenAIKey:       get(HeaderOpenAIKey),
		AnthropicKey:    get(HeaderAnthropicKey),
	}
}
