package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-planner-bot/core"
)

var (
	_ gocmd.Querier[CreateCalendarEventMessage, core.CreatedEvent] = (*CreateCalendarEventQuery)(nil)
	_ gocmd.Querier[CreateTaskMessage, core.CreatedTask]           = (*CreateTaskQuery)(nil)
	_ core.ActionDispatcher                                        = (*Dispatcher)(nil)
)
