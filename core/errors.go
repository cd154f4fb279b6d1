package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PlannerErrorExtractionFailed   = "PLANNER_EXTRACTION_FAILED"
	PlannerErrorActionFailed       = "PLANNER_ACTION_FAILED"
	PlannerErrorUnrecognizedIntent = "PLANNER_UNRECOGNIZED_INTENT"
	PlannerErrorNotificationFailed = "PLANNER_NOTIFICATION_FAILED"
	PlannerErrorBadInput           = "PLANNER_BAD_INPUT"
	PlannerErrorUnauthorized       = "PLANNER_UNAUTHORIZED"
	PlannerErrorExternalFailure    = "PLANNER_EXTERNAL_FAILURE"
	PlannerErrorInternal           = "PLANNER_INTERNAL_ERROR"
)

// ExtractionFailure reports that the completion call failed or returned
// output that could not be decoded into an intent.
func ExtractionFailure(source error, message string, metadata map[string]any) error {
	return plannerError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, PlannerErrorExtractionFailed, metadata)
}

// ActionFailure reports a calendar or task creation error. The downstream
// error text is carried in the message so it can be shown to the user.
func ActionFailure(source error, message string, metadata map[string]any) error {
	return plannerError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, PlannerErrorActionFailed, metadata)
}

func UnrecognizedIntent(reason string, metadata map[string]any) error {
	return plannerError(nil, goerrors.CategoryBadInput, reason, http.StatusUnprocessableEntity, PlannerErrorUnrecognizedIntent, metadata)
}

func NotificationFailure(source error, message string, metadata map[string]any) error {
	return plannerError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, PlannerErrorNotificationFailed, metadata)
}

func BadInput(message string, metadata map[string]any) error {
	return plannerError(nil, goerrors.CategoryBadInput, message, http.StatusBadRequest, PlannerErrorBadInput, metadata)
}

func Internal(source error, message string, metadata map[string]any) error {
	return plannerError(source, goerrors.CategoryInternal, message, http.StatusInternalServerError, PlannerErrorInternal, metadata)
}

func plannerError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	err = err.WithCode(code).WithTextCode(textCode)
	// wrapping a rich source may carry its envelope forward
	err.Category = category
	err.Message = message
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(rich.TextCode), textCode)
}

func IsExtractionFailure(err error) bool {
	return HasTextCode(err, PlannerErrorExtractionFailed)
}

func IsActionFailure(err error) bool {
	return HasTextCode(err, PlannerErrorActionFailed)
}

func IsUnrecognizedIntent(err error) bool {
	return HasTextCode(err, PlannerErrorUnrecognizedIntent)
}

func IsNotificationFailure(err error) bool {
	return HasTextCode(err, PlannerErrorNotificationFailed)
}

// ErrorText returns the human readable message of err without envelope
// decoration.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.TrimSpace(rich.Message) != "" {
		return rich.Message
	}
	return err.Error()
}
