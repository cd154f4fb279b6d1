package inbound

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubEventHandler struct {
	eventType string
	mu        sync.Mutex
	seen      []string
	fail      map[string]error
	panicOn   string
	delay     time.Duration
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
	ctxErrs   []error
}

func (h *stubEventHandler) EventType() string { return h.eventType }

func (h *stubEventHandler) Handle(ctx context.Context, event core.InboundEvent) error {
	current := h.inFlight.Add(1)
	defer h.inFlight.Add(-1)
	for {
		previous := h.maxSeen.Load()
		if current <= previous || h.maxSeen.CompareAndSwap(previous, current) {
			break
		}
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.seen = append(h.seen, event.WebhookEventID)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	if event.WebhookEventID == h.panicOn {
		panic("handler exploded")
	}
	return h.fail[event.WebhookEventID]
}

func messageEvents(ids ...string) []core.InboundEvent {
	out := make([]core.InboundEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.InboundEvent{Type: core.EventTypeMessage, MessageType: core.MessageTypeText, WebhookEventID: id})
	}
	return out
}

func TestDispatcher_RunsEveryEventDespiteSiblingFailures(t *testing.T) {
	handler := &stubEventHandler{
		eventType: core.EventTypeMessage,
		fail:      map[string]error{"e2": errors.New("action failed")},
		panicOn:   "e3",
	}
	dispatcher := NewDispatcher(4, nil)
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	report := dispatcher.Dispatch(context.Background(), messageEvents("e1", "e2", "e3", "e4"))
	if report.Total != 4 || report.Handled != 2 || report.Failed != 1 || report.Panicked != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(handler.seen) != 4 {
		t.Fatalf("expected all events handled, saw %v", handler.seen)
	}
}

func TestDispatcher_IgnoresUnknownEventTypes(t *testing.T) {
	handler := &stubEventHandler{eventType: core.EventTypeMessage}
	dispatcher := NewDispatcher(2, nil)
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	events := []core.InboundEvent{{Type: "follow"}, {Type: "unsend"}, {Type: "MESSAGE", WebhookEventID: "m"}}
	report := dispatcher.Dispatch(context.Background(), events)
	if report.Ignored != 2 || report.Handled != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	handler := &stubEventHandler{eventType: core.EventTypeMessage, delay: 10 * time.Millisecond}
	dispatcher := NewDispatcher(2, nil)
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	dispatcher.Dispatch(context.Background(), messageEvents("a", "b", "c", "d", "e", "f"))
	if got := handler.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent handlers, saw %d", got)
	}
}

func TestDispatcher_DetachesFromCallerCancellation(t *testing.T) {
	handler := &stubEventHandler{eventType: core.EventTypeMessage}
	dispatcher := NewDispatcher(1, nil)
	if err := dispatcher.Register(handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := dispatcher.Dispatch(ctx, messageEvents("a"))
	if report.Handled != 1 {
		t.Fatalf("expected event to run after caller cancellation, got %+v", report)
	}
	if handler.ctxErrs[0] != nil {
		t.Fatalf("expected detached context, got %v", handler.ctxErrs[0])
	}
}

func TestDispatcher_RegisterRejectsDuplicates(t *testing.T) {
	dispatcher := NewDispatcher(1, nil)
	if err := dispatcher.Register(&stubEventHandler{eventType: "message"}); err != nil {
		t.Fatalf("register handler: %v", err)
	}
	err := dispatcher.Register(&stubEventHandler{eventType: " Message "})
	if err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryConflict {
		t.Fatalf("expected conflict envelope, got %v", err)
	}
	if err := dispatcher.Register(nil); err == nil {
		t.Fatalf("expected nil handler error")
	}
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	report := NewDispatcher(0, nil).Dispatch(context.Background(), nil)
	if report.Total != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
