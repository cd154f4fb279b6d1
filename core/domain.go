package core

import (
	"strings"
	"time"
)

const (
	EventTypeMessage   = "message"
	MessageTypeText    = "text"
	DefaultEventLength = time.Hour
)

// InboundEvent is one decoded event from a webhook delivery.
type InboundEvent struct {
	Type           string
	MessageType    string
	MessageID      string
	Text           string
	UserID         string
	SourceType     string
	WebhookEventID string
	Timestamp      time.Time
	Redelivery     bool
}

func (e InboundEvent) IsTextMessage() bool {
	return strings.EqualFold(strings.TrimSpace(e.Type), EventTypeMessage) &&
		strings.EqualFold(strings.TrimSpace(e.MessageType), MessageTypeText)
}

type IntentKind string

const (
	IntentCalendar     IntentKind = "calendar"
	IntentTask         IntentKind = "task"
	IntentUnrecognized IntentKind = "unrecognized"
)

// Intent is the interpretation of a message. Exactly one of Calendar or Task
// is set for the matching Kind; neither is set for IntentUnrecognized.
type Intent struct {
	Kind     IntentKind
	Calendar *CalendarIntent
	Task     *TaskIntent
	Reason   string
}

type CalendarIntent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

type TaskIntent struct {
	Title string
	Notes string
	Due   *time.Time
}

func CalendarIntentOf(in CalendarIntent) Intent {
	if in.End.IsZero() {
		in.End = in.Start.Add(DefaultEventLength)
	}
	return Intent{Kind: IntentCalendar, Calendar: &in}
}

func TaskIntentOf(in TaskIntent) Intent {
	return Intent{Kind: IntentTask, Task: &in}
}

func Unrecognized(reason string) Intent {
	return Intent{Kind: IntentUnrecognized, Reason: strings.TrimSpace(reason)}
}

func (i Intent) Title() string {
	switch i.Kind {
	case IntentCalendar:
		if i.Calendar != nil {
			return i.Calendar.Title
		}
	case IntentTask:
		if i.Task != nil {
			return i.Task.Title
		}
	}
	return ""
}

type CreateEventRequest struct {
	CalendarID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

type CreatedEvent struct {
	ID       string
	HTMLLink string
	Title    string
	Start    time.Time
	End      time.Time
}

type CreateTaskRequest struct {
	TaskListID string
	Title      string
	Notes      string
	Due        *time.Time
}

type CreatedTask struct {
	ID         string
	TaskListID string
	Title      string
	Due        *time.Time
}

type ActionResult struct {
	Kind     IntentKind
	Calendar *CreatedEvent
	Task     *CreatedTask
}

type OutcomeKind string

const (
	OutcomeSkipped          OutcomeKind = "skipped"
	OutcomeCalendarCreated  OutcomeKind = "calendar_created"
	OutcomeTaskCreated      OutcomeKind = "task_created"
	OutcomeUnrecognized     OutcomeKind = "unrecognized"
	OutcomeExtractionFailed OutcomeKind = "extraction_failed"
	OutcomeActionFailed     OutcomeKind = "action_failed"
)

// Outcome is the result of the pipeline for one event.
type Outcome struct {
	Kind   OutcomeKind
	Intent Intent
	Event  *CreatedEvent
	Task   *CreatedTask
	Err    error
}

func (o Outcome) Notifiable() bool {
	return o.Kind != "" && o.Kind != OutcomeSkipped
}
