package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.PlannerErrorInternal)
}

func commandValidationError(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.PlannerErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

// validationReason flattens a validation envelope into a single line such as
// "title: title is required".
func validationReason(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		fields := rich.AllValidationErrors()
		if len(fields) == 0 {
			return core.ErrorText(err)
		}
		first := fields[0]
		if first.Field != "" {
			return first.Field + ": " + first.Message
		}
		return first.Message
	}
	return core.ErrorText(err)
}
