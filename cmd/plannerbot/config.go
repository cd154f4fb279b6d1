package main

import (
	"context"
	"strings"

	"github.com/goliatone/go-planner-bot/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindInt64
	kindFloat
	kindDuration
)

type envBinding struct {
	key  string
	env  string
	kind valueKind
}

// envBindings maps configuration keys to the environment variables that
// set them.
var envBindings = []envBinding{
	{"service_name", "SERVICE_NAME", kindString},
	{"timezone", "TIMEZONE", kindString},
	{"server.port", "PORT", kindInt},
	{"server.shutdown_timeout", "SHUTDOWN_TIMEOUT", kindDuration},
	{"server.max_body_bytes", "MAX_BODY_BYTES", kindInt64},
	{"line.channel_access_token", "LINE_CHANNEL_ACCESS_TOKEN", kindString},
	{"line.channel_secret", "LINE_CHANNEL_SECRET", kindString},
	{"line.user_id_override", "LINE_USER_ID", kindString},
	{"line.api_base_url", "LINE_API_BASE_URL", kindString},
	{"line.timeout", "LINE_TIMEOUT", kindDuration},
	{"llm.provider", "LLM_PROVIDER", kindString},
	{"llm.timeout", "LLM_TIMEOUT", kindDuration},
	{"llm.temperature", "LLM_TEMPERATURE", kindFloat},
	{"llm.max_output_tokens", "LLM_MAX_OUTPUT_TOKENS", kindInt},
	{"llm.openai.api_key", "OPENAI_API_KEY", kindString},
	{"llm.openai.model", "OPENAI_MODEL", kindString},
	{"llm.openai.base_url", "OPENAI_BASE_URL", kindString},
	{"llm.gemini.api_key", "GEMINI_API_KEY", kindString},
	{"llm.gemini.model", "GEMINI_MODEL", kindString},
	{"google.service_account_json", "GOOGLE_SERVICE_ACCOUNT_JSON", kindString},
	{"google.subject", "GOOGLE_IMPERSONATE_SUBJECT", kindString},
	{"google.calendar_id", "GOOGLE_CALENDAR_ID", kindString},
	{"google.tasklist_id", "GOOGLE_TASKLIST_ID", kindString},
	{"google.timeout", "GOOGLE_TIMEOUT", kindDuration},
	{"pipeline.max_concurrent_events", "MAX_CONCURRENT_EVENTS", kindInt},
	{"logging.level", "LOG_LEVEL", kindString},
	{"logging.format", "LOG_FORMAT", kindString},
}

// envLoader reads the environment through viper and returns only the keys
// that are set, nested by section.
type envLoader struct {
	v *viper.Viper
}

func newEnvLoader() *envLoader {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, binding := range envBindings {
		_ = v.BindEnv(binding.key, binding.env)
	}
	return &envLoader{v: v}
}

func (l *envLoader) LoadRaw(context.Context) (map[string]any, error) {
	raw := map[string]any{}
	for _, binding := range envBindings {
		if !l.v.IsSet(binding.key) {
			continue
		}
		value := l.value(binding)
		if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
			continue
		}
		setNested(raw, binding.key, value)
	}
	return raw, nil
}

func (l *envLoader) value(binding envBinding) any {
	switch binding.kind {
	case kindInt:
		return l.v.GetInt(binding.key)
	case kindInt64:
		return l.v.GetInt64(binding.key)
	case kindFloat:
		return l.v.GetFloat64(binding.key)
	case kindDuration:
		return l.v.GetDuration(binding.key)
	default:
		return l.v.GetString(binding.key)
	}
}

func setNested(target map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := target[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			target[part] = next
		}
		target = next
	}
	target[parts[len(parts)-1]] = value
}

// flagOverrides returns the runtime layer built from the flags the user
// actually passed.
func flagOverrides(cmd *cobra.Command, flags *serveFlags) core.Config {
	var runtime core.Config
	if cmd == nil || flags == nil {
		return runtime
	}
	if cmd.Flags().Changed("port") {
		runtime.Server.Port = flags.port
	}
	if cmd.Flags().Changed("log-level") {
		runtime.Logging.Level = flags.logLevel
	}
	if cmd.Flags().Changed("llm-provider") {
		runtime.LLM.Provider = flags.llmProvider
	}
	return runtime
}

func loadConfig(ctx context.Context, loader core.RawConfigLoader, runtime core.Config) (core.Config, error) {
	return core.ResolveConfig(ctx, loader, runtime)
}
