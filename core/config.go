package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"

	DefaultLLMTemperature = 0.1
)

type ServerConfig struct {
	Port            int           `koanf:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type LINEConfig struct {
	ChannelAccessToken string        `koanf:"channel_access_token" mapstructure:"channel_access_token"`
	ChannelSecret      string        `koanf:"channel_secret" mapstructure:"channel_secret"`
	UserIDOverride     string        `koanf:"user_id_override" mapstructure:"user_id_override"`
	APIBaseURL         string        `koanf:"api_base_url" mapstructure:"api_base_url"`
	Timeout            time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key" mapstructure:"api_key"`
	Model   string `koanf:"model" mapstructure:"model"`
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key" mapstructure:"api_key"`
	Model  string `koanf:"model" mapstructure:"model"`
}

type LLMConfig struct {
	Provider        string        `koanf:"provider" mapstructure:"provider"`
	Timeout         time.Duration `koanf:"timeout" mapstructure:"timeout"`
	// Temperature is nil when not configured, so an explicit 0 survives
	// layering.
	Temperature     *float64      `koanf:"temperature" mapstructure:"temperature"`
	MaxOutputTokens int           `koanf:"max_output_tokens" mapstructure:"max_output_tokens"`
	OpenAI          OpenAIConfig  `koanf:"openai" mapstructure:"openai"`
	Gemini          GeminiConfig  `koanf:"gemini" mapstructure:"gemini"`
}

type GoogleConfig struct {
	ServiceAccountJSON string        `koanf:"service_account_json" mapstructure:"service_account_json"`
	Subject            string        `koanf:"subject" mapstructure:"subject"`
	CalendarID         string        `koanf:"calendar_id" mapstructure:"calendar_id"`
	TaskListID         string        `koanf:"tasklist_id" mapstructure:"tasklist_id"`
	Timeout            time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type PipelineConfig struct {
	MaxConcurrentEvents int `koanf:"max_concurrent_events" mapstructure:"max_concurrent_events"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" mapstructure:"level"`
	Format string `koanf:"format" mapstructure:"format"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Timezone    string         `koanf:"timezone" mapstructure:"timezone"`
	Server      ServerConfig   `koanf:"server" mapstructure:"server"`
	LINE        LINEConfig     `koanf:"line" mapstructure:"line"`
	LLM         LLMConfig      `koanf:"llm" mapstructure:"llm"`
	Google      GoogleConfig   `koanf:"google" mapstructure:"google"`
	Pipeline    PipelineConfig `koanf:"pipeline" mapstructure:"pipeline"`
	Logging     LoggingConfig  `koanf:"logging" mapstructure:"logging"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "planner-bot",
		Timezone:    "Asia/Tokyo",
		Server: ServerConfig{
			Port:            10000,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		LINE: LINEConfig{
			APIBaseURL: "https://api.line.me",
			Timeout:    10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        LLMProviderOpenAI,
			Timeout:         30 * time.Second,
			Temperature:     Float64(DefaultLLMTemperature),
			MaxOutputTokens: 500,
			OpenAI: OpenAIConfig{
				Model:   "gpt-4o-mini",
				BaseURL: "https://api.openai.com",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Google: GoogleConfig{
			CalendarID: "primary",
			Timeout:    20 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxConcurrentEvents: 16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("core: server.port %d is invalid", c.Server.Port)
	}
	if strings.TrimSpace(c.LINE.ChannelAccessToken) == "" {
		return fmt.Errorf("core: line.channel_access_token is required")
	}
	if strings.TrimSpace(c.LINE.ChannelSecret) == "" {
		return fmt.Errorf("core: line.channel_secret is required")
	}
	switch c.LLM.ProviderName() {
	case LLMProviderOpenAI:
		if strings.TrimSpace(c.LLM.OpenAI.APIKey) == "" {
			return fmt.Errorf("core: llm.openai.api_key is required")
		}
	case LLMProviderGemini:
		if strings.TrimSpace(c.LLM.Gemini.APIKey) == "" {
			return fmt.Errorf("core: llm.gemini.api_key is required")
		}
	default:
		return fmt.Errorf("core: llm.provider %q is not supported", c.LLM.Provider)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("core: llm.temperature %v must be between 0 and 2", *t)
	}
	if c.LLM.MaxOutputTokens < 0 {
		return fmt.Errorf("core: llm.max_output_tokens must not be negative")
	}
	if err := validateServiceAccountJSON(c.Google.ServiceAccountJSON); err != nil {
		return err
	}
	if c.Pipeline.MaxConcurrentEvents < 0 {
		return fmt.Errorf("core: pipeline.max_concurrent_events must not be negative")
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return nil, fmt.Errorf("core: timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("core: timezone %q is invalid: %w", name, err)
	}
	return loc, nil
}

func (c LLMConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// clone copies c without sharing pointer fields, so decoding over the copy
// leaves c untouched.
func (c Config) clone() Config {
	if c.LLM.Temperature != nil {
		c.LLM.Temperature = Float64(*c.LLM.Temperature)
	}
	return c
}

// SamplingTemperature returns the configured temperature or the default
// when none is set.
func (c LLMConfig) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultLLMTemperature
	}
	return *c.Temperature
}

func Float64(value float64) *float64 {
	return &value
}

func (c LLMConfig) ModelName() string {
	switch c.ProviderName() {
	case LLMProviderGemini:
		return strings.TrimSpace(c.Gemini.Model)
	default:
		return strings.TrimSpace(c.OpenAI.Model)
	}
}

// Sanitized strips surrounding whitespace from every value and all inner
// whitespace from credentials, which are commonly pasted with line breaks.
func (c Config) Sanitized() Config {
	c.ServiceName = strings.TrimSpace(c.ServiceName)
	c.Timezone = strings.TrimSpace(c.Timezone)
	c.LINE.ChannelAccessToken = StripWhitespace(c.LINE.ChannelAccessToken)
	c.LINE.ChannelSecret = StripWhitespace(c.LINE.ChannelSecret)
	c.LINE.UserIDOverride = strings.TrimSpace(c.LINE.UserIDOverride)
	c.LINE.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.LINE.APIBaseURL), "/")
	c.LLM.Provider = c.LLM.ProviderName()
	c.LLM.OpenAI.APIKey = StripWhitespace(c.LLM.OpenAI.APIKey)
	c.LLM.OpenAI.Model = strings.TrimSpace(c.LLM.OpenAI.Model)
	c.LLM.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.OpenAI.BaseURL), "/")
	c.LLM.Gemini.APIKey = StripWhitespace(c.LLM.Gemini.APIKey)
	c.LLM.Gemini.Model = strings.TrimSpace(c.LLM.Gemini.Model)
	c.Google.ServiceAccountJSON = strings.TrimSpace(c.Google.ServiceAccountJSON)
	c.Google.Subject = strings.TrimSpace(c.Google.Subject)
	c.Google.CalendarID = strings.TrimSpace(c.Google.CalendarID)
	c.Google.TaskListID = strings.TrimSpace(c.Google.TaskListID)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return c
}

func StripWhitespace(value string) string {
	return strings.Join(strings.Fields(value), "")
}

type serviceAccountProbe struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func validateServiceAccountJSON(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("core: google.service_account_json is required")
	}
	var probe serviceAccountProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return fmt.Errorf("core: google.service_account_json is invalid: %w", err)
	}
	if strings.TrimSpace(probe.ClientEmail) == "" {
		return fmt.Errorf("core: google.service_account_json client_email is required")
	}
	if strings.TrimSpace(probe.PrivateKey) == "" {
		return fmt.Errorf("core: google.service_account_json private_key is required")
	}
	return nil
}

// CredentialFields returns each configured credential reduced to a short
// masked prefix, for confirming at startup which keys were loaded.
func (c Config) CredentialFields() map[string]any {
	fields := map[string]any{
		"line_channel_access_token": MaskSecret(c.LINE.ChannelAccessToken),
		"line_channel_secret":       MaskSecret(c.LINE.ChannelSecret),
	}
	switch c.LLM.ProviderName() {
	case LLMProviderGemini:
		fields["gemini_api_key"] = MaskSecret(c.LLM.Gemini.APIKey)
	default:
		fields["openai_api_key"] = MaskSecret(c.LLM.OpenAI.APIKey)
	}
	var probe serviceAccountProbe
	if json.Unmarshal([]byte(c.Google.ServiceAccountJSON), &probe) == nil {
		fields["google_client_email"] = strings.TrimSpace(probe.ClientEmail)
	}
	return fields
}

// LogFields returns the configuration as a field map with secrets masked.
func (c Config) LogFields() map[string]any {
	return RedactSensitiveMap(configToLayerMap(c, true))
}
