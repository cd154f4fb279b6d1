package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type InboundRequest struct {
	ProviderID string
	Surface    string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string

	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type CompletionRequest struct {
	Model           string
	System          string
	User            string
	Temperature     float64
	MaxOutputTokens int
	JSONMode        bool
}

type CompletionUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type CompletionResult struct {
	Text     string
	Model    string
	Usage    CompletionUsage
	Duration time.Duration
}

// CompletionClient is a single-shot chat completion backend.
type CompletionClient interface {
	Provider() string
	Model() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

type IntentExtractor interface {
	Extract(ctx context.Context, text string, now time.Time) (Intent, error)
}

type ActionDispatcher interface {
	Dispatch(ctx context.Context, intent Intent) (ActionResult, error)
}

type CalendarCreator interface {
	CreateEvent(ctx context.Context, req CreateEventRequest) (CreatedEvent, error)
}

type TaskCreator interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (CreatedTask, error)
}

type Notifier interface {
	Notify(ctx context.Context, to string, outcome Outcome) error
}

type TextMessage struct {
	Text string
}

type Pusher interface {
	Push(ctx context.Context, to string, messages ...TextMessage) error
}

// EventHandler processes one decoded event of a given type.
type EventHandler interface {
	EventType() string
	Handle(ctx context.Context, event InboundEvent) error
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

type IDGenerator func() string

// DispatchReport summarises one batch of events handed to an
// EventDispatcher.
type DispatchReport struct {
	Total    int
	Handled  int
	Ignored  int
	Failed   int
	Panicked int
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, events []InboundEvent) DispatchReport
}
