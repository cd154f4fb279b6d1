package command

import (
	"strings"

	"github.com/goliatone/go-planner-bot/core"
)

const (
	TypeCreateCalendarEvent = "planner.command.calendar_event.create"
	TypeCreateTask          = "planner.command.task.create"
)

type CreateCalendarEventMessage struct {
	Intent core.CalendarIntent
}

func (CreateCalendarEventMessage) Type() string { return TypeCreateCalendarEvent }

func (m CreateCalendarEventMessage) Validate() error {
	if strings.TrimSpace(m.Intent.Title) == "" {
		return commandValidationError("title", "title is required")
	}
	if m.Intent.Start.IsZero() {
		return commandValidationError("start", "start is required")
	}
	if !m.Intent.End.IsZero() && !m.Intent.End.After(m.Intent.Start) {
		return commandValidationError("end", "end must be after start")
	}
	return nil
}

type CreateTaskMessage struct {
	Intent core.TaskIntent
}

func (CreateTaskMessage) Type() string { return TypeCreateTask }

func (m CreateTaskMessage) Validate() error {
	if strings.TrimSpace(m.Intent.Title) == "" {
		return commandValidationError("title", "title is required")
	}
	return nil
}
