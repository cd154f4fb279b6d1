package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/transport"
)

const (
	ProviderID     = core.LLMProviderOpenAI
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	chatCompletionsPath = "/v1/chat/completions"
)

// Client calls the chat completions endpoint through a transport adapter.
type Client struct {
	Transport core.TransportAdapter
	BaseURL   string
	APIKey    string
	ModelName string
	Timeout   time.Duration
}

func New(cfg core.LLMConfig, adapter core.TransportAdapter) *Client {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAI.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.OpenAI.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		Transport: adapter,
		BaseURL:   baseURL,
		APIKey:    cfg.OpenAI.APIKey,
		ModelName: model,
		Timeout:   cfg.Timeout,
	}
}

func (*Client) Provider() string { return ProviderID }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.ModelName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	if c == nil || c.Transport == nil {
		return core.CompletionResult{}, openaiError("openai: transport is required", http.StatusInternalServerError)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.ModelName
	}
	body := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return core.CompletionResult{}, openaiWrapError(err, "openai: encode request")
	}

	startedAt := time.Now()
	res, err := c.Transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     c.BaseURL + chatCompletionsPath,
		Headers: map[string]string{"Authorization": "Bearer " + c.APIKey},
		Body:    payload,
		Timeout: c.Timeout,
	})
	if err != nil {
		return core.CompletionResult{}, err
	}

	var out chatCompletionResponse
	decodeErr := json.Unmarshal(res.Body, &out)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail := ""
		if decodeErr == nil && out.Error != nil {
			detail = out.Error.Message
		}
		return core.CompletionResult{}, transport.StatusError("openai", res, detail)
	}
	if decodeErr != nil {
		return core.CompletionResult{}, openaiWrapError(decodeErr, "openai: decode response")
	}
	if len(out.Choices) == 0 {
		return core.CompletionResult{}, openaiError("openai: empty choices", http.StatusBadGateway)
	}
	if out.Model == "" {
		out.Model = model
	}
	return core.CompletionResult{
		Text:  out.Choices[0].Message.Content,
		Model: out.Model,
		Usage: core.CompletionUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		Duration: time.Since(startedAt),
	}, nil
}

var _ core.CompletionClient = (*Client)(nil)
