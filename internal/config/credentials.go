package config

// Credentials are the provider secrets used for one pipeline run.
// Server defaults come from the environment; callers may override any field
// per request (bring-your-own-key).
type Credentials struct {
	DeepgramKey     string `yaml:"deepgramKey"`
	AzureKey        string `yaml:"azureKey"`
	AzureEndpoint   string `yaml:"azureEndpoint"`
	AzureDeployment string `yaml:"azureDeployment"`
	AzureAPIVersion string `yaml:"azureApiVersion"`
	OpenAIKey       string `yaml:"openaiKey"`
	AnthropicKey    string `yaml:"anthropicKey"`
}

// Merge returns c with every non-empty field of override applied.
func (c Credentials) Merge(override Credentials) Credentials {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return Credentials{
		DeepgramKey:     pick(c.DeepgramKey, override.DeepgramKey),
		AzureKey:        pick(c.AzureKey, override.AzureKey),
		AzureEndpoint:   pick(c.AzureEndpoint, override.AzureEndpoint),
		AzureDeployment: pick(c.AzureDeployment, override.AzureDeployment),
		AzureAPIVersion: pick(c.AzureAPIVersion, override.AzureAPIVersion),
		OpenAIKey:       pick(c.OpenAIKey, override.OpenAIKey),
		AnthropicKey:    pick(c.AnthropicKey, override.AnthropicKey),
	}
}
