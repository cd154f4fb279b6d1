package transport

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message+": "+source.Error()).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.PlannerErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.PlannerErrorUnauthorized
	case goerrors.CategoryExternal, goerrors.CategoryRateLimit:
		return core.PlannerErrorExternalFailure
	default:
		return core.PlannerErrorInternal
	}
}

// StatusError converts a non-2xx response into a rich error. detail is the
// provider specific error message extracted from the body, when available.
func StatusError(service string, res core.TransportResponse, detail string) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = strings.TrimSpace(string(res.Body))
	}
	if runes := []rune(detail); len(runes) > 512 {
		detail = string(runes[:512])
	}
	message := fmt.Sprintf("%s: status %d", service, res.StatusCode)
	if detail != "" {
		message += ": " + detail
	}
	return transportError(message, statusCategory(res.StatusCode), res.StatusCode, map[string]any{
		"service":     service,
		"status_code": res.StatusCode,
	})
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}
