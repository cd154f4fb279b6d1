package line

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/webhooks"
)

const (
	ProviderID      = "line"
	HeaderSignature = "X-Line-Signature"
)

func NewWebhookTemplate(channelSecret string) webhooks.ProviderWebhookTemplate {
	return webhooks.ProviderWebhookTemplate{
		ProviderID: ProviderID,
		Verifier: webhooks.HeaderHMACVerifier{
			Header:   HeaderSignature,
			Secret:   strings.TrimSpace(channelSecret),
			Encoding: "base64",
		},
		Decoder: DecodeEvents,
	}
}

type webhookBody struct {
	Destination string          `json:"destination"`
	Events      json.RawMessage `json:"events"`
}

type webhookEvent struct {
	Type           string `json:"type"`
	Timestamp      int64  `json:"timestamp"`
	WebhookEventID string `json:"webhookEventId"`
	Source         struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	DeliveryContext struct {
		IsRedelivery bool `json:"isRedelivery"`
	} `json:"deliveryContext"`
}

// DecodeEvents reads the "events" array of a webhook delivery. A body without
// that array is rejected; an empty array is a valid verification ping.
func DecodeEvents(body []byte) ([]core.InboundEvent, error) {
	var envelope webhookBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("line: decode webhook body: %w", err)
	}
	raw := strings.TrimSpace(string(envelope.Events))
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("line: webhook body has no events array")
	}
	var events []webhookEvent
	if err := json.Unmarshal(envelope.Events, &events); err != nil {
		return nil, fmt.Errorf("line: decode webhook events: %w", err)
	}

	out := make([]core.InboundEvent, 0, len(events))
	for _, event := range events {
		decoded := core.InboundEvent{
			Type:           strings.TrimSpace(event.Type),
			UserID:         strings.TrimSpace(event.Source.UserID),
			SourceType:     strings.TrimSpace(event.Source.Type),
			WebhookEventID: strings.TrimSpace(event.WebhookEventID),
			Redelivery:     event.DeliveryContext.IsRedelivery,
		}
		if event.Timestamp > 0 {
			decoded.Timestamp = time.UnixMilli(event.Timestamp).UTC()
		}
		if event.Message != nil {
			decoded.MessageType = strings.TrimSpace(event.Message.Type)
			decoded.MessageID = strings.TrimSpace(event.Message.ID)
			decoded.Text = event.Message.Text
		}
		out = append(out, decoded)
	}
	return out, nil
}
