package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-planner-bot/core"
)

const (
	DefaultTemperature     = core.DefaultLLMTemperature
	DefaultMaxOutputTokens = 500
	DefaultTimeout         = 30 * time.Second
)

// Extractor asks a completion provider for a JSON intent and validates it.
type Extractor struct {
	Client          core.CompletionClient
	Location        *time.Location
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
	Logger          core.Logger
}

func NewExtractor(client core.CompletionClient, cfg core.LLMConfig, loc *time.Location) *Extractor {
	return &Extractor{
		Client:          client,
		Location:        loc,
		Timeout:         cfg.Timeout,
		Temperature:     cfg.SamplingTemperature(),
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

func (e *Extractor) Extract(ctx context.Context, text string, now time.Time) (core.Intent, error) {
	if e == nil || e.Client == nil {
		return core.Intent{}, core.ExtractionFailure(nil, "completion client is not configured", nil)
	}
	loc := e.Location
	if loc == nil {
		loc = now.Location()
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := core.CompletionRequest{
		Model:           e.Client.Model(),
		System:          SystemPrompt(now),
		User:            text,
		Temperature:     e.temperature(),
		MaxOutputTokens: e.maxOutputTokens(),
		JSONMode:        true,
	}
	metadata := map[string]any{"provider": e.Client.Provider(), "model": req.Model}

	result, err := e.Client.Complete(callCtx, req)
	if err != nil {
		detail := core.ErrorText(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", timeout)
		}
		return core.Intent{}, core.ExtractionFailure(err, fmt.Sprintf("%s解析失敗: %s", providerLabel(e.Client.Provider()), detail), metadata)
	}
	if e.Logger != nil {
		e.Logger.Debug("completion received", "provider", metadata["provider"], "model", result.Model, "text", result.Text,
			"total_tokens", result.Usage.TotalTokens)
	}

	parsed, err := ParseIntent(result.Text, loc)
	if err != nil {
		return core.Intent{}, core.ExtractionFailure(err, fmt.Sprintf("%s解析失敗: %s", providerLabel(e.Client.Provider()), core.ErrorText(err)), metadata)
	}
	return parsed, nil
}

func (e *Extractor) temperature() float64 {
	if e.Temperature < 0 {
		return DefaultTemperature
	}
	return e.Temperature
}

func (e *Extractor) maxOutputTokens() int {
	if e.MaxOutputTokens <= 0 {
		return DefaultMaxOutputTokens
	}
	return e.MaxOutputTokens
}

func providerLabel(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case core.LLMProviderOpenAI:
		return "OpenAI"
	case core.LLMProviderGemini:
		return "Gemini"
	case "":
		return "LLM"
	default:
		return provider
	}
}
