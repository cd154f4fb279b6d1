package openai

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
)

func openaiError(message string, code int) error {
	category := goerrors.CategoryExternal
	textCode := core.PlannerErrorExternalFailure
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
		category = goerrors.CategoryInternal
		textCode = core.PlannerErrorInternal
	}
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode).
		WithMetadata(map[string]any{"provider": ProviderID})
}

func openaiWrapError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, message+": "+source.Error()).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.PlannerErrorExternalFailure).
		WithMetadata(map[string]any{"provider": ProviderID})
}
