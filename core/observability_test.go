package core

import (
	"context"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestServiceObservability_LogsStagesWithCorrelation(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	extractor := &stubExtractor{intent: TaskIntentOf(TaskIntent{Title: "牛乳を買う"})}
	dispatcher := &stubDispatcher{result: ActionResult{Kind: IntentTask, Task: &CreatedTask{ID: "t1", Title: "牛乳を買う"}}}
	svc, err := newTestService(extractor, dispatcher, &recordingNotifier{},
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.HandleEvent(context.Background(), textEvent("牛乳を買う"))

	for _, stage := range []string{"extract", "dispatch", "notify", "event"} {
		if !hasCounter(metrics.counters, "planner."+stage+".total", "success") {
			t.Fatalf("expected planner.%s.total success counter", stage)
		}
		if !hasHistogram(metrics.histograms, "planner."+stage+".duration_ms", "success") {
			t.Fatalf("expected planner.%s.duration_ms histogram", stage)
		}
	}

	records := logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected log records")
	}
	for _, record := range records {
		if record.fields["correlation_id"] != "corr-1" {
			t.Fatalf("expected correlation id on %q, got %#v", record.msg, record.fields["correlation_id"])
		}
		if record.fields["webhook_event_id"] != "evt-1" {
			t.Fatalf("expected webhook event id on %q", record.msg)
		}
	}
}

func TestServiceObservability_NotificationFailureIsLoggedAndCounted(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	extractor := &stubExtractor{intent: Unrecognized("kind missing")}
	notifier := &recordingNotifier{err: NotificationFailure(nil, "push rejected: 400", nil)}
	svc, err := newTestService(extractor, &stubDispatcher{}, notifier,
		WithMetricsRecorder(metrics),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	outcome := svc.HandleEvent(context.Background(), textEvent("?"))
	if outcome.Kind != OutcomeUnrecognized {
		t.Fatalf("expected unrecognized outcome, got %q", outcome.Kind)
	}
	if !hasCounter(metrics.counters, "planner.notify.total", "failure") {
		t.Fatalf("expected planner.notify.total failure counter")
	}

	var found bool
	for _, record := range logger.snapshot() {
		if record.level == "error" && record.msg == "notify failed" {
			found = true
			if record.fields["user_id"] != "U123" {
				t.Fatalf("expected user id on failure log, got %#v", record.fields["user_id"])
			}
			if record.fields["error"] != "push rejected: 400" {
				t.Fatalf("expected push error text, got %#v", record.fields["error"])
			}
		}
	}
	if !found {
		t.Fatalf("expected notify failed error log")
	}
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func TestStageTags_KeepsOnlyLabelledFields(t *testing.T) {
	tags := cloneTags(stageTags("extract", "success", map[string]any{
		"intent_kind":    " calendar ",
		"outcome":        "",
		"correlation_id": "corr-1",
	}))
	if len(tags) != 3 || tags["intent_kind"] != "calendar" || tags["operation"] != "extract" || tags["status"] != "success" {
		t.Fatalf("unexpected tags %#v", tags)
	}
	if got := cloneTags(map[string]string{" ": "x", "outcome": " "}); len(got) != 0 {
		t.Fatalf("expected blank labels to be dropped, got %#v", got)
	}
}
