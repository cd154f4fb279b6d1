package intent

import "github.com/goliatone/go-planner-bot/core"

func parseFailure(source error, message string) error {
	return core.ExtractionFailure(source, message, map[string]any{"stage": "parse"})
}
