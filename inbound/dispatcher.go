package inbound

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-planner-bot/core"
	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrent = 16

// Dispatcher fans a batch of events out to the handler registered for each
// event type. Events run concurrently, detached from the caller's
// cancellation, and Dispatch returns once all of them finished.
type Dispatcher struct {
	MaxConcurrent int
	Logger        core.Logger
	Metrics       core.MetricsRecorder

	mu       sync.RWMutex
	handlers map[string]core.EventHandler
}

func NewDispatcher(maxConcurrent int, logger core.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Dispatcher{
		MaxConcurrent: maxConcurrent,
		Logger:        glog.Ensure(logger),
		Metrics:       core.NopMetricsRecorder{},
		handlers:      map[string]core.EventHandler{},
	}
}

func (d *Dispatcher) Register(handler core.EventHandler) error {
	if d == nil {
		return inboundInternal("inbound: dispatcher is nil", nil)
	}
	if handler == nil {
		return inboundBadInput("inbound: handler is nil", nil)
	}
	eventType := normalizeEventType(handler.EventType())
	if eventType == "" {
		return inboundBadInput("inbound: handler event type is required", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[string]core.EventHandler{}
	}
	if _, exists := d.handlers[eventType]; exists {
		return inboundError(
			fmt.Sprintf("inbound: handler already registered for event type %q", eventType),
			goerrors.CategoryConflict,
			http.StatusConflict,
			core.PlannerErrorBadInput,
			map[string]any{"event_type": eventType},
		)
	}
	d.handlers[eventType] = handler
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []core.InboundEvent) core.DispatchReport {
	report := core.DispatchReport{Total: len(events)}
	if d == nil || len(events) == 0 {
		return report
	}
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)

	var (
		mu    sync.Mutex
		group errgroup.Group
	)
	group.SetLimit(d.maxConcurrent())
	for _, event := range events {
		group.Go(func() error {
			status := d.run(detached, event)
			mu.Lock()
			switch status {
			case statusHandled:
				report.Handled++
			case statusIgnored:
				report.Ignored++
			case statusFailed:
				report.Failed++
			case statusPanicked:
				report.Panicked++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return report
}

type runStatus int

const (
	statusHandled runStatus = iota
	statusIgnored
	statusFailed
	statusPanicked
)

func (d *Dispatcher) run(ctx context.Context, event core.InboundEvent) (status runStatus) {
	eventType := normalizeEventType(event.Type)
	startedAt := time.Now()
	fields := map[string]any{
		"event_type":       eventType,
		"webhook_event_id": event.WebhookEventID,
		"user_id":          event.UserID,
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			status = statusPanicked
			fields["panic"] = fmt.Sprint(recovered)
			fields["stack"] = string(debug.Stack())
			d.log(ctx, "error", "event handler panicked", fields)
		}
		d.record(ctx, eventType, status, startedAt)
	}()

	handler := d.handlerFor(eventType)
	if handler == nil {
		d.log(ctx, "debug", "event ignored", fields)
		return statusIgnored
	}
	if err := handler.Handle(ctx, event); err != nil {
		fields["error"] = core.ErrorText(err)
		d.log(ctx, "warn", "event handler failed", fields)
		return statusFailed
	}
	return statusHandled
}

func (d *Dispatcher) handlerFor(eventType string) core.EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[eventType]
}

func (d *Dispatcher) maxConcurrent() int {
	if d.MaxConcurrent > 0 {
		return d.MaxConcurrent
	}
	return defaultMaxConcurrent
}

func (d *Dispatcher) log(ctx context.Context, level string, message string, fields map[string]any) {
	if d.Logger == nil {
		return
	}
	logger := d.Logger.WithContext(ctx)
	args := make([]any, 0, len(fields)*2)
	for _, key := range []string{"event_type", "webhook_event_id", "user_id", "error", "panic", "stack"} {
		if value, ok := fields[key]; ok {
			args = append(args, key, value)
		}
	}
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Debug(message, args...)
	}
}

func (d *Dispatcher) record(ctx context.Context, eventType string, status runStatus, startedAt time.Time) {
	if d.Metrics == nil {
		return
	}
	tags := map[string]string{"event_type": eventType, "status": status.String()}
	d.Metrics.IncCounter(ctx, "planner.dispatch_events.total", 1, tags)
	d.Metrics.ObserveHistogram(ctx, "planner.dispatch_events.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}

func (s runStatus) String() string {
	switch s {
	case statusHandled:
		return "handled"
	case statusIgnored:
		return "ignored"
	case statusFailed:
		return "failed"
	case statusPanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

func normalizeEventType(eventType string) string {
	return strings.ToLower(strings.TrimSpace(eventType))
}

var _ core.EventDispatcher = (*Dispatcher)(nil)
