package intent

import "github.com/goliatone/go-planner-bot/core"

var _ core.IntentExtractor = (*Extractor)(nil)
