package core

import (
	"context"
	"errors"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrExtractorRequired  = errors.New("core: intent extractor is required")
	ErrDispatcherRequired = errors.New("core: action dispatcher is required")
	ErrNotifierRequired   = errors.New("core: notifier is required")
)

// Service runs the per-event pipeline: extract the intent, dispatch the
// action and notify the sender. Failures of one event never escape
// HandleEvent.
type Service struct {
	config          Config
	location        *time.Location
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	extractor       IntentExtractor
	dispatcher      ActionDispatcher
	notifier        Notifier
	clock           Clock
	newID           IDGenerator
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("planner", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("planner"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = ClockFunc(time.Now)
	}
	if builder.idGenerator == nil {
		builder.idGenerator = defaultServiceBuilder(cfg).idGenerator
	}
	if builder.extractor == nil {
		return nil, ErrExtractorRequired
	}
	if builder.dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if builder.notifier == nil {
		return nil, ErrNotifierRequired
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}
	location, err := finalConfig.Location()
	if err != nil {
		return nil, err
	}

	return &Service{
		config:          finalConfig,
		location:        location,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		extractor:       builder.extractor,
		dispatcher:      builder.dispatcher,
		notifier:        builder.notifier,
		clock:           builder.clock,
		newID:           builder.idGenerator,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Location() *time.Location {
	if s == nil || s.location == nil {
		return time.UTC
	}
	return s.location
}

func (s *Service) EventType() string {
	return EventTypeMessage
}

// Handle adapts HandleEvent to EventHandler. Pipeline failures are already
// reported to the user and logged, so they are not returned.
func (s *Service) Handle(ctx context.Context, event InboundEvent) error {
	s.HandleEvent(ctx, event)
	return nil
}

func (s *Service) HandleEvent(ctx context.Context, event InboundEvent) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.IsTextMessage() {
		s.logDebug(ctx, "event skipped", map[string]any{
			"webhook_event_id": event.WebhookEventID,
			"event_type":       event.Type,
			"message_type":     event.MessageType,
		})
		s.recordCounter(ctx, "planner.events.total", 1, map[string]string{"outcome": string(OutcomeSkipped)})
		return Outcome{Kind: OutcomeSkipped}
	}

	startedAt := time.Now()
	fields := map[string]any{
		"correlation_id":   s.newID(),
		"webhook_event_id": event.WebhookEventID,
		"message_id":       event.MessageID,
		"user_id":          event.UserID,
		"source_type":      event.SourceType,
		"redelivery":       event.Redelivery,
	}

	outcome := s.process(ctx, event, fields)
	s.notify(ctx, event, outcome, fields)

	eventFields := cloneFields(fields)
	eventFields["outcome"] = string(outcome.Kind)
	s.observeOperation(ctx, startedAt, "event", failureOf(outcome), eventFields)
	return outcome
}

func (s *Service) process(ctx context.Context, event InboundEvent, fields map[string]any) Outcome {
	now := s.clock.Now().In(s.Location())

	startedAt := time.Now()
	intent, err := s.extractor.Extract(ctx, event.Text, now)
	extractFields := cloneFields(fields)
	if err == nil {
		extractFields["intent_kind"] = string(intent.Kind)
		if intent.Reason != "" {
			extractFields["reason"] = intent.Reason
		}
	}
	s.observeOperation(ctx, startedAt, "extract", err, extractFields)
	if err != nil {
		if !IsExtractionFailure(err) {
			err = ExtractionFailure(err, ErrorText(err), nil)
		}
		return Outcome{Kind: OutcomeExtractionFailed, Err: err}
	}

	switch intent.Kind {
	case IntentCalendar, IntentTask:
	default:
		return Outcome{
			Kind:   OutcomeUnrecognized,
			Intent: intent,
			Err:    UnrecognizedIntent(unrecognizedReason(intent), nil),
		}
	}

	startedAt = time.Now()
	result, err := s.dispatcher.Dispatch(ctx, intent)
	dispatchFields := cloneFields(fields)
	dispatchFields["intent_kind"] = string(intent.Kind)
	s.observeOperation(ctx, startedAt, "dispatch", err, dispatchFields)
	if err != nil {
		if IsUnrecognizedIntent(err) {
			return Outcome{Kind: OutcomeUnrecognized, Intent: intent, Err: err}
		}
		if !IsActionFailure(err) {
			err = ActionFailure(err, ErrorText(err), nil)
		}
		return Outcome{Kind: OutcomeActionFailed, Intent: intent, Err: err}
	}

	switch {
	case result.Calendar != nil:
		return Outcome{Kind: OutcomeCalendarCreated, Intent: intent, Event: result.Calendar}
	case result.Task != nil:
		return Outcome{Kind: OutcomeTaskCreated, Intent: intent, Task: result.Task}
	default:
		return Outcome{
			Kind:   OutcomeActionFailed,
			Intent: intent,
			Err:    ActionFailure(nil, "action returned no result", nil),
		}
	}
}

func (s *Service) notify(ctx context.Context, event InboundEvent, outcome Outcome, fields map[string]any) {
	if !outcome.Notifiable() {
		return
	}
	to := strings.TrimSpace(s.config.LINE.UserIDOverride)
	if to == "" {
		to = strings.TrimSpace(event.UserID)
	}

	startedAt := time.Now()
	var err error
	if to == "" {
		err = NotificationFailure(nil, "notification destination is empty", nil)
	} else if notifyErr := s.notifier.Notify(ctx, to, outcome); notifyErr != nil {
		err = notifyErr
		if !IsNotificationFailure(err) {
			err = NotificationFailure(notifyErr, ErrorText(notifyErr), nil)
		}
	}
	notifyFields := cloneFields(fields)
	notifyFields["outcome"] = string(outcome.Kind)
	notifyFields["destination"] = to
	s.observeOperation(ctx, startedAt, "notify", err, notifyFields)
}

func failureOf(outcome Outcome) error {
	switch outcome.Kind {
	case OutcomeExtractionFailed, OutcomeActionFailed:
		return outcome.Err
	default:
		return nil
	}
}

func unrecognizedReason(intent Intent) string {
	if reason := strings.TrimSpace(intent.Reason); reason != "" {
		return reason
	}
	return "intent kind " + string(intent.Kind) + " is not supported"
}
