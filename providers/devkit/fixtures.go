package devkit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/webhooks"
)

// LINEEvent describes one element of a LINE webhook "events" array.
type LINEEvent struct {
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

func TextMessageEvent(webhookEventID string, userID string, text string) LINEEvent {
	return LINEEvent{
		Type:           core.EventTypeMessage,
		MessageType:    core.MessageTypeText,
		MessageID:      "msg-" + webhookEventID,
		Text:           text,
		UserID:         userID,
		SourceType:     "user",
		WebhookEventID: webhookEventID,
		Timestamp:      time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC),
	}
}

// LINEWebhookBody renders events the way the LINE platform posts them.
func LINEWebhookBody(destination string, events ...LINEEvent) []byte {
	items := make([]map[string]any, 0, len(events))
	for _, event := range events {
		item := map[string]any{
			"type":           event.Type,
			"mode":           "active",
			"timestamp":      event.Timestamp.UnixMilli(),
			"webhookEventId": event.WebhookEventID,
			"deliveryContext": map[string]any{
				"isRedelivery": event.Redelivery,
			},
			"source": map[string]any{
				"type":   event.SourceType,
				"userId": event.UserID,
			},
		}
		if event.MessageType != "" {
			message := map[string]any{"id": event.MessageID, "type": event.MessageType}
			if event.Text != "" {
				message["text"] = event.Text
			}
			item["message"] = message
		}
		items = append(items, item)
	}
	payload, err := json.Marshal(map[string]any{"destination": destination, "events": items})
	if err != nil {
		panic(fmt.Sprintf("devkit: encode line webhook body: %v", err))
	}
	return payload
}

// SignLINEBody returns the X-Line-Signature value for body.
func SignLINEBody(channelSecret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(webhooks.SignHMAC(channelSecret, body))
}

// ScriptedCompletion replies with Replies in order, repeating the last one.
// A reply keyed by user text in ByText wins over the ordered list.
type ScriptedCompletion struct {
	mu       sync.Mutex
	Replies  []string
	ByText   map[string]string
	Err      error
	ModelID  string
	requests []core.CompletionRequest
}

func (s *ScriptedCompletion) Provider() string { return "devkit" }

func (s *ScriptedCompletion) Model() string {
	if s.ModelID == "" {
		return "scripted"
	}
	return s.ModelID
}

func (s *ScriptedCompletion) Complete(_ context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.Err != nil {
		return core.CompletionResult{}, s.Err
	}
	if reply, ok := s.ByText[req.User]; ok {
		return core.CompletionResult{Text: reply, Model: s.Model()}, nil
	}
	if len(s.Replies) == 0 {
		return core.CompletionResult{}, fmt.Errorf("devkit: no scripted completion")
	}
	index := len(s.requests) - 1
	if index >= len(s.Replies) {
		index = len(s.Replies) - 1
	}
	return core.CompletionResult{Text: s.Replies[index], Model: s.Model()}, nil
}

func (s *ScriptedCompletion) Requests() []core.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CompletionRequest(nil), s.requests...)
}

// RecordingCalendar records every CreateEvent call. FailTitles maps an event
// title to the error returned for it.
type RecordingCalendar struct {
	mu         sync.Mutex
	FailTitles map[string]error
	requests   []core.CreateEventRequest
}

func (r *RecordingCalendar) CreateEvent(_ context.Context, req core.CreateEventRequest) (core.CreatedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if err := r.FailTitles[req.Title]; err != nil {
		return core.CreatedEvent{}, err
	}
	id := fmt.Sprintf("evt_%d", len(r.requests))
	return core.CreatedEvent{
		ID:       id,
		HTMLLink: "https://calendar.google.com/event?eid=" + id,
		Title:    req.Title,
		Start:    req.Start,
		End:      req.End,
	}, nil
}

func (r *RecordingCalendar) Requests() []core.CreateEventRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.CreateEventRequest(nil), r.requests...)
}

type RecordingTasks struct {
	mu         sync.Mutex
	FailTitles map[string]error
	requests   []core.CreateTaskRequest
}

func (r *RecordingTasks) CreateTask(_ context.Context, req core.CreateTaskRequest) (core.CreatedTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if err := r.FailTitles[req.Title]; err != nil {
		return core.CreatedTask{}, err
	}
	listID := req.TaskListID
	if listID == "" {
		listID = "default"
	}
	return core.CreatedTask{ID: fmt.Sprintf("task_%d", len(r.requests)), TaskListID: listID, Title: req.Title, Due: req.Due}, nil
}

func (r *RecordingTasks) Requests() []core.CreateTaskRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.CreateTaskRequest(nil), r.requests...)
}

// PushedMessage is one Push call captured by RecordingPusher.
type PushedMessage struct {
	To   string
	Text string
}

type RecordingPusher struct {
	mu     sync.Mutex
	Err    error
	pushes []PushedMessage
}

func (r *RecordingPusher) Push(_ context.Context, to string, messages ...core.TextMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range messages {
		r.pushes = append(r.pushes, PushedMessage{To: to, Text: message.Text})
	}
	return r.Err
}

func (r *RecordingPusher) Pushes() []PushedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PushedMessage(nil), r.pushes...)
}

var (
	_ core.CompletionClient = (*ScriptedCompletion)(nil)
	_ core.CalendarCreator  = (*RecordingCalendar)(nil)
	_ core.TaskCreator      = (*RecordingTasks)(nil)
	_ core.Pusher           = (*RecordingPusher)(nil)
)
