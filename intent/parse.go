package intent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-planner-bot/core"
)

var errNullObject = errors.New("json object is null")

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateOnlyLayout = "2006-01-02"

// ParseIntent maps a model reply onto the core.Intent union. Replies that are
// not a JSON object fail with an extraction failure; objects that are JSON but
// do not describe a usable calendar event or task become an unrecognized
// intent carrying the reason.
func ParseIntent(text string, loc *time.Location) (core.Intent, error) {
	if loc == nil {
		loc = time.UTC
	}
	payload, err := decodeObject(text)
	if err != nil {
		return core.Intent{}, err
	}

	kind := strings.ToLower(stringField(payload, "type"))
	if kind == "" {
		kind = strings.ToLower(stringField(payload, "kind"))
	}
	switch core.IntentKind(kind) {
	case core.IntentCalendar:
		return calendarIntent(payload, loc), nil
	case core.IntentTask:
		return taskIntent(payload, loc), nil
	case "":
		return core.Unrecognized("missing intent type"), nil
	default:
		return core.Unrecognized("unknown intent type " + kind), nil
	}
}

func calendarIntent(payload map[string]any, loc *time.Location) core.Intent {
	title := stringField(payload, "title")
	if title == "" {
		return core.Unrecognized("calendar title is required")
	}
	rawStart := stringField(payload, "start")
	if rawStart == "" {
		return core.Unrecognized("calendar start is required")
	}
	start, ok := parseDateTime(rawStart, loc)
	if !ok {
		return core.Unrecognized("calendar start is malformed: " + rawStart)
	}
	var end time.Time
	if rawEnd := stringField(payload, "end"); rawEnd != "" {
		end, ok = parseDateTime(rawEnd, loc)
		if !ok {
			return core.Unrecognized("calendar end is malformed: " + rawEnd)
		}
		if !end.After(start) {
			return core.Unrecognized("calendar end must be after start")
		}
	}
	return core.CalendarIntentOf(core.CalendarIntent{
		Title:       title,
		Description: stringField(payload, "description"),
		Start:       start,
		End:         end,
	})
}

func taskIntent(payload map[string]any, loc *time.Location) core.Intent {
	title := stringField(payload, "title")
	if title == "" {
		return core.Unrecognized("task title is required")
	}
	out := core.TaskIntent{Title: title, Notes: stringField(payload, "notes")}
	if rawDue := stringField(payload, "due"); rawDue != "" {
		due, ok := parseDateTime(rawDue, loc)
		if !ok {
			parsed, err := time.ParseInLocation(dateOnlyLayout, rawDue, loc)
			if err != nil {
				return core.Unrecognized("task due is malformed: " + rawDue)
			}
			due = parsed
		}
		out.Due = &due
	}
	return core.TaskIntentOf(out)
}

func parseDateTime(value string, loc *time.Location) (time.Time, bool) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, true
	}
	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func decodeObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, parseFailure(nil, "empty model response")
	}

	payload, err := unmarshalObject(text)
	if err == nil {
		return payload, nil
	}
	lastErr := err

	if block := extractFromCodeBlock(text); block != "" {
		payload, err = unmarshalObject(block)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}

	if object := extractJSONObject(text); object != "" {
		payload, err = unmarshalObject(object)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	} else if !strings.ContainsAny(text, "{[") {
		return nil, parseFailure(nil, "model response contains no JSON object")
	}
	return nil, parseFailure(lastErr, "model response is not valid JSON: "+lastErr.Error())
}

func unmarshalObject(text string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errNullObject
	}
	return payload, nil
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func extractFromCodeBlock(text string) string {
	matches := codeBlockRe.FindStringSubmatch(text)
	if len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
