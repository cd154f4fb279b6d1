package line

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/transport"
	"github.com/google/uuid"
)

const (
	DefaultAPIBaseURL = "https://api.line.me"
	HeaderRetryKey    = "X-Line-Retry-Key"
	MaxPushMessages   = 5

	pushPath = "/v2/bot/message/push"
)

// PushClient sends push messages through the Messaging API. Each call
// carries a fresh retry key in TransportRequest.Idempotency.
type PushClient struct {
	Transport   core.TransportAdapter
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	NewRetryKey func() string
}

// NewPushClient falls back to a REST adapter that maps the retry key onto
// the X-Line-Retry-Key header.
func NewPushClient(cfg core.LINEConfig, adapter core.TransportAdapter) *PushClient {
	if adapter == nil {
		rest := transport.NewRESTAdapter(nil)
		rest.IdempotencyHeader = HeaderRetryKey
		adapter = rest
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &PushClient{
		Transport:   adapter,
		BaseURL:     baseURL,
		AccessToken: cfg.ChannelAccessToken,
		Timeout:     cfg.Timeout,
		NewRetryKey: uuid.NewString,
	}
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

func (c *PushClient) Push(ctx context.Context, to string, messages ...core.TextMessage) error {
	if c == nil || c.Transport == nil {
		return lineError("line: push transport is required", goerrors.CategoryInternal, http.StatusInternalServerError)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return lineError("line: push destination is required", goerrors.CategoryBadInput, http.StatusBadRequest)
	}
	if len(messages) == 0 || len(messages) > MaxPushMessages {
		return lineError(fmt.Sprintf("line: push takes 1 to %d messages, got %d", MaxPushMessages, len(messages)), goerrors.CategoryBadInput, http.StatusBadRequest)
	}

	body := pushRequest{To: to, Messages: make([]pushMessage, 0, len(messages))}
	for _, message := range messages {
		body.Messages = append(body.Messages, pushMessage{Type: "text", Text: message.Text})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return lineError("line: encode push request: "+err.Error(), goerrors.CategoryInternal, http.StatusInternalServerError)
	}

	retryKey := ""
	if c.NewRetryKey != nil {
		retryKey = c.NewRetryKey()
	}
	res, err := c.Transport.Do(ctx, core.TransportRequest{
		Method:      http.MethodPost,
		URL:         c.BaseURL + pushPath,
		Headers:     map[string]string{"Authorization": "Bearer " + c.AccessToken},
		Body:        payload,
		Timeout:     c.Timeout,
		Idempotency: retryKey,
	})
	if err != nil {
		return err
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	var apiErr apiErrorBody
	detail := ""
	if json.Unmarshal(res.Body, &apiErr) == nil {
		detail = apiErr.Message
		if len(apiErr.Details) > 0 && apiErr.Details[0].Message != "" {
			detail += " (" + apiErr.Details[0].Property + ": " + apiErr.Details[0].Message + ")"
		}
	}
	return transport.StatusError("line", res, detail)
}

func lineError(message string, category goerrors.Category, code int) error {
	textCode := core.PlannerErrorExternalFailure
	switch category {
	case goerrors.CategoryBadInput:
		textCode = core.PlannerErrorBadInput
	case goerrors.CategoryInternal:
		textCode = core.PlannerErrorInternal
	}
	return goerrors.New(message, category).WithCode(code).WithTextCode(textCode)
}

var _ core.Pusher = (*PushClient)(nil)
