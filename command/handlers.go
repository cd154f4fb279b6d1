package command

import (
	"context"
	"strings"

	"github.com/goliatone/go-planner-bot/core"
)

type CreateCalendarEventQuery struct {
	creator    core.CalendarCreator
	calendarID string
	timeZone   string
}

func NewCreateCalendarEventQuery(creator core.CalendarCreator, calendarID string, timeZone string) *CreateCalendarEventQuery {
	return &CreateCalendarEventQuery{
		creator:    creator,
		calendarID: strings.TrimSpace(calendarID),
		timeZone:   strings.TrimSpace(timeZone),
	}
}

func (q *CreateCalendarEventQuery) Query(ctx context.Context, msg CreateCalendarEventMessage) (core.CreatedEvent, error) {
	if q == nil || q.creator == nil {
		return core.CreatedEvent{}, commandDependencyError("command: calendar creator is required")
	}
	end := msg.Intent.End
	if end.IsZero() {
		end = msg.Intent.Start.Add(core.DefaultEventLength)
	}
	calendarID := q.calendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return q.creator.CreateEvent(ctx, core.CreateEventRequest{
		CalendarID:  calendarID,
		Title:       strings.TrimSpace(msg.Intent.Title),
		Description: msg.Intent.Description,
		Start:       msg.Intent.Start,
		End:         end,
		TimeZone:    q.timeZone,
	})
}

type CreateTaskQuery struct {
	creator    core.TaskCreator
	taskListID string
}

// NewCreateTaskQuery binds creator to taskListID. An empty list id lets the
// creator fall back to the account's first task list.
func NewCreateTaskQuery(creator core.TaskCreator, taskListID string) *CreateTaskQuery {
	return &CreateTaskQuery{creator: creator, taskListID: strings.TrimSpace(taskListID)}
}

func (q *CreateTaskQuery) Query(ctx context.Context, msg CreateTaskMessage) (core.CreatedTask, error) {
	if q == nil || q.creator == nil {
		return core.CreatedTask{}, commandDependencyError("command: task creator is required")
	}
	return q.creator.CreateTask(ctx, core.CreateTaskRequest{
		TaskListID: q.taskListID,
		Title:      strings.TrimSpace(msg.Intent.Title),
		Notes:      msg.Intent.Notes,
		Due:        msg.Intent.Due,
	})
}
