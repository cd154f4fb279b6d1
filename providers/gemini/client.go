package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"google.golang.org/genai"
)

const (
	ProviderID   = core.LLMProviderGemini
	DefaultModel = "gemini-2.0-flash"
)

// ModelsAPI is the slice of *genai.Models the client needs.
type ModelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	Models    ModelsAPI
	ModelName string
	Timeout   time.Duration
}

// New builds a Gemini API client keyed by cfg.Gemini.APIKey.
func New(ctx context.Context, cfg core.LLMConfig, httpClient *http.Client) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.Gemini.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, geminiWrapError(err, "gemini: create client")
	}
	return NewWithModels(client.Models, cfg), nil
}

func NewWithModels(models ModelsAPI, cfg core.LLMConfig) *Client {
	model := strings.TrimSpace(cfg.Gemini.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{Models: models, ModelName: model, Timeout: cfg.Timeout}
}

func (*Client) Provider() string { return ProviderID }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.ModelName
}

func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	if c == nil || c.Models == nil {
		return core.CompletionResult{}, goerrors.New("gemini: models api is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.PlannerErrorInternal)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.ModelName
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	startedAt := time.Now()
	resp, err := c.Models.GenerateContent(ctx, model, []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}, config)
	if err != nil {
		return core.CompletionResult{}, geminiWrapError(err, "gemini: generate content")
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return core.CompletionResult{}, goerrors.New("gemini: empty candidates", goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(core.PlannerErrorExternalFailure)
	}

	out := core.CompletionResult{Text: resp.Text(), Model: model, Duration: time.Since(startedAt)}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = core.CompletionUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

func geminiWrapError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, message+": "+source.Error()).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.PlannerErrorExternalFailure).
		WithMetadata(map[string]any{"provider": ProviderID})
}

var _ core.CompletionClient = (*Client)(nil)
