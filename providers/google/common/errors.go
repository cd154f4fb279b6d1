package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/transport"
	"google.golang.org/api/googleapi"
)

// APIError normalizes a Google API client error into a rich error whose
// message reads "<service>: status <code>: <google message>".
func APIError(service string, err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if detail == "" && len(apiErr.Errors) > 0 {
			detail = apiErr.Errors[0].Message
		}
		statusErr := transport.StatusError(service, core.TransportResponse{
			StatusCode: apiErr.Code,
			Body:       []byte(apiErr.Body),
		}, detail)
		var rich *goerrors.Error
		if len(metadata) > 0 && goerrors.As(statusErr, &rich) {
			return rich.WithMetadata(metadata)
		}
		return statusErr
	}

	category := goerrors.CategoryExternal
	code := http.StatusBadGateway
	message := fmt.Sprintf("%s: %s", service, err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		message = fmt.Sprintf("%s: request timed out", service)
		code = http.StatusGatewayTimeout
	}
	rich := goerrors.Wrap(err, category, message).
		WithCode(code).
		WithTextCode(core.PlannerErrorExternalFailure)
	if len(metadata) > 0 {
		rich = rich.WithMetadata(metadata)
	}
	return rich
}
