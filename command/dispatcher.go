package command

import (
	"context"
	"errors"

	"github.com/goliatone/go-planner-bot/adapters/gocommand"
	"github.com/goliatone/go-planner-bot/core"
)

// Dispatcher routes an extracted intent to the matching creation query.
type Dispatcher struct {
	Calendar *CreateCalendarEventQuery
	Task     *CreateTaskQuery
}

func NewDispatcher(calendar *CreateCalendarEventQuery, task *CreateTaskQuery) *Dispatcher {
	return &Dispatcher{Calendar: calendar, Task: task}
}

func (d *Dispatcher) Dispatch(ctx context.Context, intent core.Intent) (core.ActionResult, error) {
	if d == nil {
		return core.ActionResult{}, commandDependencyError("command: dispatcher is required")
	}
	switch intent.Kind {
	case core.IntentCalendar:
		if intent.Calendar == nil {
			return core.ActionResult{}, core.UnrecognizedIntent("calendar details missing", nil)
		}
		if d.Calendar == nil {
			return core.ActionResult{}, commandDependencyError("command: calendar query is required")
		}
		created, err := gocommand.RunQuery[CreateCalendarEventMessage, core.CreatedEvent](
			ctx, d.Calendar, CreateCalendarEventMessage{Intent: *intent.Calendar},
		)
		if err != nil {
			return core.ActionResult{}, dispatchError(err, TypeCreateCalendarEvent)
		}
		return core.ActionResult{Kind: core.IntentCalendar, Calendar: &created}, nil
	case core.IntentTask:
		if intent.Task == nil {
			return core.ActionResult{}, core.UnrecognizedIntent("task details missing", nil)
		}
		if d.Task == nil {
			return core.ActionResult{}, commandDependencyError("command: task query is required")
		}
		created, err := gocommand.RunQuery[CreateTaskMessage, core.CreatedTask](
			ctx, d.Task, CreateTaskMessage{Intent: *intent.Task},
		)
		if err != nil {
			return core.ActionResult{}, dispatchError(err, TypeCreateTask)
		}
		return core.ActionResult{Kind: core.IntentTask, Task: &created}, nil
	default:
		return core.ActionResult{}, core.UnrecognizedIntent("unsupported intent kind "+string(intent.Kind), nil)
	}
}

func dispatchError(err error, messageType string) error {
	metadata := map[string]any{"message_type": messageType}
	var contractErr *gocommand.MessageContractError
	if errors.As(err, &contractErr) {
		return core.UnrecognizedIntent(validationReason(contractErr.Err), metadata)
	}
	if core.IsActionFailure(err) {
		return err
	}
	return core.ActionFailure(err, core.ErrorText(err), metadata)
}
