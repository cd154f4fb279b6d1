package common

import "strings"

const (
	ScopeCalendar       = "https://www.googleapis.com/auth/calendar"
	ScopeCalendarEvents = "https://www.googleapis.com/auth/calendar.events"
	ScopeTasks          = "https://www.googleapis.com/auth/tasks"
)

// DefaultScopes covers event and task creation.
func DefaultScopes() []string {
	return []string{ScopeCalendar, ScopeTasks}
}

// WithScopes merges extra into base, trimming blanks and duplicates while
// keeping first-seen order.
func WithScopes(base []string, extra ...string) []string {
	return normalizeScopes(append(append([]string(nil), base...), extra...))
}

func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{}
	}
	seen := map[string]struct{}{}
	result := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		trimmed := strings.TrimSpace(scope)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
