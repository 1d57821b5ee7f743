// Package config loads service configuration from defaults, an optional
// YAML file (CONFIG_FILE) and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	STT           STTConfig           `yaml:"stt"`
	Generation    GenerationConfig    `yaml:"generation"`
	Credentials   Credentials         `yaml:"credentials"`
	Limits        LimitsConfig        `yaml:"limits"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig holds listener settings.
type ServiceConfig struct {
	Principal   string `yaml:"principal"`
	HTTPPort    string `yaml:"httpPort"`
	GRPCPort    string `yaml:"grpcPort"`
	MetricsPort string `yaml:"metricsPort"`

	AllowedOrigins []string `yaml:"allowedOrigins"` // CORS origins for the HTTP API
}

// STTConfig selects and tunes the transcription provider.
type STTConfig struct {
	Provider       string `yaml:"provider"` // deepgram, google, whisper, mock
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	GoogleEndpoint string `yaml:"googleEndpoint"`
	GoogleLanguage string `yaml:"googleLanguage"`
	WhisperModel   string `yaml:"whisperModel"`
}

// GenerationConfig selects and tunes the ticket extraction provider.
type GenerationConfig struct {
	Provider    string `yaml:"provider"` // azure, openai, anthropic, mock
	Model       string `yaml:"model"`
	Instruction string `yaml:"instruction"`
	UserPrefix  string `yaml:"userPrefix"`
	MaxTokens   int64  `yaml:"maxTokens"`
}

// LimitsConfig holds the pipeline guardrails.
type LimitsConfig struct {
	MaxAudioBytes      int64         `yaml:"maxAudioBytes"`
	MinTranscriptChars int           `yaml:"minTranscriptChars"`
	StageTimeout       time.Duration `yaml:"stageTimeout"`
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Brokers          []string `yaml:"brokers"`
	TopicTranscripts string   `yaml:"topicTranscripts"`
	TopicTickets     string   `yaml:"topicTickets"`
	Principal        string   `yaml:"principal"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal:   "svc-speech-to-jira",
			HTTPPort:    "4000",
			GRPCPort:    "50051",
			MetricsPort: "9090",

			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"http://127.0.0.1:3001",
			},
		},
		STT: STTConfig{
			Provider:       "deepgram",
			Endpoint:       "https://api.eu.deepgram.com/v1/listen",
			Model:          "nova-2",
			Language:       "nl",
			GoogleEndpoint: "eu-speech.googleapis.com:443",
			GoogleLanguage: "nl-NL",
			WhisperModel:   "whisper-1",
		},
		Generation: GenerationConfig{
			Provider:  "azure",
			MaxTokens: 8000,
		},
		Credentials: Credentials{
			AzureDeployment: "gpt-4o",
			AzureAPIVersion: "2025-01-01-preview",
		},
		Limits: LimitsConfig{
			MaxAudioBytes:      100 * 1024 * 1024,
			MinTranscriptChars: 10,
			StageTimeout:       2 * time.Minute,
		},
		Kafka: KafkaConfig{
			TopicTranscripts: "meeting.transcript.completed",
			TopicTickets:     "meeting.tickets.generated",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration. A YAML file named by CONFIG_FILE is applied
// over the defaults; environment variables win over both.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.HTTPPort = envOrDefault("PORT", c.Service.HTTPPort)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)
	c.Service.MetricsPort = envOrDefault("METRICS_PORT", c.Service.MetricsPort)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Service.AllowedOrigins = splitList(origins)
	}

	c.STT.Provider = envOrDefault("STT_PROVIDER", c.STT.Provider)
	c.STT.Endpoint = envOrDefault("DEEPGRAM_ENDPOINT", c.STT.Endpoint)
	c.STT.Model = envOrDefault("DEEPGRAM_MODEL", c.STT.Model)
	c.STT.Language = envOrDefault("STT_LANGUAGE", c.STT.Language)
	c.STT.GoogleEndpoint = envOrDefault("GOOGLE_SPEECH_ENDPOINT", c.STT.GoogleEndpoint)
	c.STT.GoogleLanguage = envOrDefault("GOOGLE_SPEECH_LANGUAGE", c.STT.GoogleLanguage)
	c.STT.WhisperModel = envOrDefault("WHISPER_MODEL", c.STT.WhisperModel)

	c.Generation.Provider = envOrDefault("GENERATION_PROVIDER", c.Generation.Provider)
	c.Generation.Model = envOrDefault("GENERATION_MODEL", c.Generation.Model)
	c.Generation.MaxTokens = envOrDefaultInt64("GENERATION_MAX_TOKENS", c.Generation.MaxTokens)

	c.Credentials.DeepgramKey = envOrDefault("DEEPGRAM_API_KEY", c.Credentials.DeepgramKey)
	c.Credentials.AzureKey = envOrDefault("AZURE_OPENAI_API_KEY", c.Credentials.AzureKey)
	c.Credentials.AzureEndpoint = envOrDefault("AZURE_OPENAI_ENDPOINT", c.Credentials.AzureEndpoint)
	c.Credentials.AzureDeployment = envOrDefault("AZURE_OPENAI_DEPLOYMENT", c.Credentials.AzureDeployment)
	c.Credentials.AzureAPIVersion = envOrDefault("AZURE_OPENAI_API_VERSION", c.Credentials.AzureAPIVersion)
	c.Credentials.OpenAIKey = envOrDefault("OPENAI_API_KEY", c.Credentials.OpenAIKey)
	c.Credentials.AnthropicKey = envOrDefault("ANTHROPIC_API_KEY", c.Credentials.AnthropicKey)

	c.Limits.MaxAudioBytes = envOrDefaultInt64("MAX_AUDIO_BYTES", c.Limits.MaxAudioBytes)
	c.Limits.MinTranscriptChars = envOrDefaultInt("MIN_TRANSCRIPT_CHARS", c.Limits.MinTranscriptChars)
	c.Limits.StageTimeout = envOrDefaultDuration("STAGE_TIMEOUT", c.Limits.StageTimeout)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.TopicTranscripts = envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", c.Kafka.TopicTranscripts)
	c.Kafka.TopicTickets = envOrDefault("KAFKA_TOPIC_TICKETS", c.Kafka.TopicTickets)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
