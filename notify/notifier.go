package notify

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-planner-bot/core"
)

const (
	// MaxTextLength is the LINE limit for one text message, in characters.
	MaxTextLength = 5000

	FallbackText = "申し訳ございません。理解できませんでした。もう一度お試しください。"

	calendarHeader = "📅 カレンダーに追加しました"
	taskHeader     = "✅ タスクを追加しました"
	errorPrefix    = "エラーが発生しました: "
	displayLayout  = "2006/01/02 15:04"
	dueLayout      = "2006/01/02"
)

// Notifier renders an outcome as one text message and pushes it.
type Notifier struct {
	Pusher   core.Pusher
	Location *time.Location
}

func New(pusher core.Pusher, loc *time.Location) *Notifier {
	return &Notifier{Pusher: pusher, Location: loc}
}

func (n *Notifier) Notify(ctx context.Context, to string, outcome core.Outcome) error {
	if n == nil || n.Pusher == nil {
		return core.NotificationFailure(nil, "notify: pusher is required", nil)
	}
	text, ok := n.Render(outcome)
	if !ok {
		return nil
	}
	if err := n.Pusher.Push(ctx, to, core.TextMessage{Text: text}); err != nil {
		return core.NotificationFailure(err, core.ErrorText(err), map[string]any{"outcome": string(outcome.Kind)})
	}
	return nil
}

// Render returns the message text for outcome, or false when the outcome
// is not reported to the user.
func (n *Notifier) Render(outcome core.Outcome) (string, bool) {
	var text string
	switch outcome.Kind {
	case core.OutcomeCalendarCreated:
		text = n.calendarText(outcome)
	case core.OutcomeTaskCreated:
		text = n.taskText(outcome)
	case core.OutcomeUnrecognized:
		text = FallbackText
	case core.OutcomeExtractionFailed, core.OutcomeActionFailed:
		detail := core.ErrorText(outcome.Err)
		if detail == "" {
			detail = string(outcome.Kind)
		}
		text = errorPrefix + detail
	default:
		return "", false
	}
	return Truncate(text, MaxTextLength), true
}

func (n *Notifier) calendarText(outcome core.Outcome) string {
	title := outcome.Intent.Title()
	var start time.Time
	if outcome.Event != nil {
		if outcome.Event.Title != "" {
			title = outcome.Event.Title
		}
		start = outcome.Event.Start
	} else if outcome.Intent.Calendar != nil {
		start = outcome.Intent.Calendar.Start
	}
	lines := []string{calendarHeader, "", title}
	if !start.IsZero() {
		lines = append(lines, n.in(start).Format(displayLayout))
	}
	return strings.Join(lines, "\n")
}

func (n *Notifier) taskText(outcome core.Outcome) string {
	title := outcome.Intent.Title()
	var due *time.Time
	if outcome.Task != nil {
		if outcome.Task.Title != "" {
			title = outcome.Task.Title
		}
		due = outcome.Task.Due
	}
	lines := []string{taskHeader, "", title}
	if due != nil && !due.IsZero() {
		lines = append(lines, "期限: "+n.in(*due).Format(dueLayout))
	}
	return strings.Join(lines, "\n")
}

func (n *Notifier) in(at time.Time) time.Time {
	if n.Location == nil {
		return at
	}
	return at.In(n.Location)
}

// Truncate cuts text to at most limit runes.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

var _ core.Notifier = (*Notifier)(nil)
