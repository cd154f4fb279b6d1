package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewService_RequiresStages(t *testing.T) {
	if _, err := NewService(testConfig()); !errors.Is(err, ErrExtractorRequired) {
		t.Fatalf("expected extractor required, got %v", err)
	}
	if _, err := NewService(testConfig(), WithIntentExtractor(&stubExtractor{})); !errors.Is(err, ErrDispatcherRequired) {
		t.Fatalf("expected dispatcher required, got %v", err)
	}
	_, err := NewService(testConfig(), WithIntentExtractor(&stubExtractor{}), WithActionDispatcher(&stubDispatcher{}))
	if !errors.Is(err, ErrNotifierRequired) {
		t.Fatalf("expected notifier required, got %v", err)
	}
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.LINE.ChannelSecret = ""
	_, err := NewService(cfg,
		WithIntentExtractor(&stubExtractor{}),
		WithActionDispatcher(&stubDispatcher{}),
		WithNotifier(&recordingNotifier{}),
	)
	if err == nil {
		t.Fatalf("expected missing channel secret to fail")
	}
}

func TestNewService_PropagatesConfigProviderFailure(t *testing.T) {
	_, err := newTestService(&stubExtractor{}, &stubDispatcher{}, &recordingNotifier{},
		WithConfigProvider(NewCfgxConfigProvider(failingRawLoader{})),
	)
	if err == nil {
		t.Fatalf("expected raw loader failure")
	}
}

func TestHandleEvent_SkipsNonTextEvents(t *testing.T) {
	extractor := &stubExtractor{}
	dispatcher := &stubDispatcher{}
	notifier := &recordingNotifier{}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	events := []InboundEvent{
		{Type: "follow", UserID: "U1"},
		{Type: EventTypeMessage, MessageType: "sticker", UserID: "U1"},
		{Type: EventTypeMessage, MessageType: "image", UserID: "U1"},
	}
	for _, event := range events {
		outcome := svc.HandleEvent(context.Background(), event)
		if outcome.Kind != OutcomeSkipped {
			t.Fatalf("expected skipped outcome for %+v, got %q", event, outcome.Kind)
		}
	}
	if extractor.calls() != 0 || dispatcher.calls() != 0 {
		t.Fatalf("expected no downstream calls")
	}
	if len(notifier.snapshot()) != 0 {
		t.Fatalf("expected no notifications")
	}
}

func TestHandleEvent_CalendarCreatedNotifiesSender(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	start := time.Date(2025, time.March, 10, 14, 0, 0, 0, tokyo)
	intent := CalendarIntentOf(CalendarIntent{Title: "歯医者", Start: start})
	extractor := &stubExtractor{intent: intent}
	dispatcher := &stubDispatcher{result: ActionResult{
		Kind:     IntentCalendar,
		Calendar: &CreatedEvent{ID: "ev1", Title: "歯医者", Start: start, End: start.Add(time.Hour)},
	}}
	notifier := &recordingNotifier{}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	outcome := svc.HandleEvent(context.Background(), textEvent("来週月曜14時に歯医者"))
	if outcome.Kind != OutcomeCalendarCreated {
		t.Fatalf("expected calendar created, got %q (%v)", outcome.Kind, outcome.Err)
	}
	if extractor.texts[0] != "来週月曜14時に歯医者" {
		t.Fatalf("expected raw text to reach extractor, got %q", extractor.texts[0])
	}
	if extractor.nows[0].Location().String() != "Asia/Tokyo" {
		t.Fatalf("expected extractor clock in configured location, got %s", extractor.nows[0].Location())
	}
	if got := dispatcher.intents[0].Calendar.End; !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected default one hour end, got %s", got)
	}
	sent := notifier.snapshot()
	if len(sent) != 1 || sent[0].to != "U123" {
		t.Fatalf("expected one notification to sender, got %+v", sent)
	}
	if sent[0].outcome.Event == nil || sent[0].outcome.Event.Title != "歯医者" {
		t.Fatalf("expected created event on notification outcome")
	}
}

func TestHandleEvent_UnrecognizedIntentSkipsDispatch(t *testing.T) {
	extractor := &stubExtractor{intent: Unrecognized("unknown kind \"memo\"")}
	dispatcher := &stubDispatcher{}
	notifier := &recordingNotifier{}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	outcome := svc.HandleEvent(context.Background(), textEvent("hello"))
	if outcome.Kind != OutcomeUnrecognized {
		t.Fatalf("expected unrecognized, got %q", outcome.Kind)
	}
	if !IsUnrecognizedIntent(outcome.Err) {
		t.Fatalf("expected unrecognized intent error, got %v", outcome.Err)
	}
	if dispatcher.calls() != 0 {
		t.Fatalf("expected zero creation calls")
	}
	if len(notifier.snapshot()) != 1 {
		t.Fatalf("expected fallback notification")
	}
}

func TestHandleEvent_ExtractionFailureIsNotified(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("context deadline exceeded")}
	dispatcher := &stubDispatcher{}
	notifier := &recordingNotifier{}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	outcome := svc.HandleEvent(context.Background(), textEvent("明日"))
	if outcome.Kind != OutcomeExtractionFailed {
		t.Fatalf("expected extraction failed, got %q", outcome.Kind)
	}
	if !IsExtractionFailure(outcome.Err) {
		t.Fatalf("expected extraction failure envelope, got %v", outcome.Err)
	}
	if ErrorText(outcome.Err) != "context deadline exceeded" {
		t.Fatalf("expected source text preserved, got %q", ErrorText(outcome.Err))
	}
	if dispatcher.calls() != 0 {
		t.Fatalf("expected no dispatch after extraction failure")
	}
	if len(notifier.snapshot()) != 1 {
		t.Fatalf("expected error notification")
	}
}

func TestHandleEvent_ActionFailureCarriesDownstreamText(t *testing.T) {
	extractor := &stubExtractor{intent: TaskIntentOf(TaskIntent{Title: "牛乳を買う"})}
	dispatcher := &stubDispatcher{err: errors.New("googleapi: Error 403: insufficientPermissions")}
	notifier := &recordingNotifier{}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	outcome := svc.HandleEvent(context.Background(), textEvent("牛乳を買う"))
	if outcome.Kind != OutcomeActionFailed {
		t.Fatalf("expected action failed, got %q", outcome.Kind)
	}
	if !IsActionFailure(outcome.Err) {
		t.Fatalf("expected action failure envelope")
	}
	if ErrorText(outcome.Err) != "googleapi: Error 403: insufficientPermissions" {
		t.Fatalf("unexpected error text %q", ErrorText(outcome.Err))
	}
}

func TestHandleEvent_UserIDOverrideWins(t *testing.T) {
	cfg := testConfig()
	cfg.LINE.UserIDOverride = "Uoverride"
	notifier := &recordingNotifier{}
	svc, err := NewService(cfg,
		WithIntentExtractor(&stubExtractor{intent: Unrecognized("")}),
		WithActionDispatcher(&stubDispatcher{}),
		WithNotifier(notifier),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.HandleEvent(context.Background(), textEvent("x"))
	sent := notifier.snapshot()
	if len(sent) != 1 || sent[0].to != "Uoverride" {
		t.Fatalf("expected override destination, got %+v", sent)
	}
}

func TestHandleEvent_MissingDestinationDoesNotPanic(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, err := newTestService(&stubExtractor{intent: Unrecognized("")}, &stubDispatcher{}, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	event := textEvent("x")
	event.UserID = ""
	outcome := svc.HandleEvent(context.Background(), event)
	if outcome.Kind != OutcomeUnrecognized {
		t.Fatalf("expected pipeline to run, got %q", outcome.Kind)
	}
	if len(notifier.snapshot()) != 0 {
		t.Fatalf("expected notifier to be skipped without destination")
	}
}

func TestHandleEvent_NotificationFailureIsSwallowed(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("line push: 500")}
	extractor := &stubExtractor{intent: TaskIntentOf(TaskIntent{Title: "a"})}
	dispatcher := &stubDispatcher{result: ActionResult{Kind: IntentTask, Task: &CreatedTask{ID: "t", Title: "a"}}}
	svc, err := newTestService(extractor, dispatcher, notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Handle(context.Background(), textEvent("a")); err != nil {
		t.Fatalf("expected handle to swallow notification failure, got %v", err)
	}
}
