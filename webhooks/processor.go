package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
)

const defaultMaxBodyBytes int64 = 1 << 20

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// EventDecoder turns a verified delivery body into events. It must fail
// when the body is not a well formed delivery.
type EventDecoder func(body []byte) ([]core.InboundEvent, error)

type Processor struct {
	ProviderID   string
	Verifier     Verifier
	Decoder      EventDecoder
	Dispatcher   core.EventDispatcher
	MaxBodyBytes int64
}

func NewProcessor(template ProviderWebhookTemplate, dispatcher core.EventDispatcher) *Processor {
	return &Processor{
		ProviderID:   strings.TrimSpace(template.ProviderID),
		Verifier:     template.Verifier,
		Decoder:      template.Decoder,
		Dispatcher:   dispatcher,
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

// Process verifies, decodes and dispatches one delivery. The returned result
// always carries the status code to answer with, also when err is not nil.
func (p *Processor) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Decoder == nil || p.Dispatcher == nil {
		return rejected(http.StatusInternalServerError, ""), webhookError(
			"webhooks: processor requires decoder and dispatcher",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			core.PlannerErrorInternal,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		providerID = p.ProviderID
	}
	req.ProviderID = providerID

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			return rejected(http.StatusUnauthorized, providerID), webhookWrapError(
				err,
				goerrors.CategoryAuth,
				"webhooks: request verification failed",
				http.StatusUnauthorized,
				core.PlannerErrorUnauthorized,
				map[string]any{"provider_id": providerID},
			)
		}
	}

	if limit := p.maxBodyBytes(); int64(len(req.Body)) > limit {
		return rejected(http.StatusInternalServerError, providerID), webhookError(
			fmt.Sprintf("webhooks: body exceeds limit of %d bytes", limit),
			goerrors.CategoryBadInput,
			http.StatusInternalServerError,
			core.PlannerErrorBadInput,
			map[string]any{"provider_id": providerID, "body_bytes": len(req.Body)},
		)
	}

	events, err := p.Decoder(req.Body)
	if err != nil {
		return rejected(http.StatusInternalServerError, providerID), webhookWrapError(
			err,
			goerrors.CategoryBadInput,
			"webhooks: decode delivery",
			http.StatusInternalServerError,
			core.PlannerErrorBadInput,
			map[string]any{"provider_id": providerID},
		)
	}

	report := p.Dispatcher.Dispatch(ctx, events)
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"provider_id": providerID,
			"events":      report.Total,
			"handled":     report.Handled,
			"ignored":     report.Ignored,
			"failed":      report.Failed,
			"panicked":    report.Panicked,
		},
	}, nil
}

func (p *Processor) maxBodyBytes() int64 {
	if p != nil && p.MaxBodyBytes > 0 {
		return p.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func rejected(status int, providerID string) core.InboundResult {
	metadata := map[string]any{"rejected": true}
	if providerID != "" {
		metadata["provider_id"] = providerID
	}
	return core.InboundResult{Accepted: false, StatusCode: status, Metadata: metadata}
}
