package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	extractor       IntentExtractor
	dispatcher      ActionDispatcher
	notifier        Notifier
	clock           Clock
	idGenerator     IDGenerator
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithIntentExtractor(extractor IntentExtractor) Option {
	return func(b *serviceBuilder) {
		b.extractor = extractor
	}
}

func WithActionDispatcher(dispatcher ActionDispatcher) Option {
	return func(b *serviceBuilder) {
		b.dispatcher = dispatcher
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(b *serviceBuilder) {
		b.notifier = notifier
	}
}

func WithClock(clock Clock) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func WithIDGenerator(generator IDGenerator) Option {
	return func(b *serviceBuilder) {
		b.idGenerator = generator
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		clock:           ClockFunc(time.Now),
		idGenerator:     uuid.NewString,
	}
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// CfgxConfigProvider decodes raw values over defaults. Validation happens
// after all layers are merged.
type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults.clone()))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value, cfgx.WithDefaults(defaults.clone()))
	if err != nil {
		return Config{}, err
	}
	resolved = resolved.Sanitized()
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads raw values through loader and merges them with the
// defaults and runtime overrides.
func ResolveConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)
	putString(layer, "timezone", cfg.Timezone, includeZero)

	server := map[string]any{}
	putInt(server, "port", cfg.Server.Port, includeZero)
	putDuration(server, "shutdown_timeout", cfg.Server.ShutdownTimeout, includeZero)
	if includeZero || cfg.Server.MaxBodyBytes != 0 {
		server["max_body_bytes"] = cfg.Server.MaxBodyBytes
	}
	putSection(layer, "server", server)

	line := map[string]any{}
	putString(line, "channel_access_token", cfg.LINE.ChannelAccessToken, includeZero)
	putString(line, "channel_secret", cfg.LINE.ChannelSecret, includeZero)
	putString(line, "user_id_override", cfg.LINE.UserIDOverride, includeZero)
	putString(line, "api_base_url", cfg.LINE.APIBaseURL, includeZero)
	putDuration(line, "timeout", cfg.LINE.Timeout, includeZero)
	putSection(layer, "line", line)

	openai := map[string]any{}
	putString(openai, "api_key", cfg.LLM.OpenAI.APIKey, includeZero)
	putString(openai, "model", cfg.LLM.OpenAI.Model, includeZero)
	putString(openai, "base_url", cfg.LLM.OpenAI.BaseURL, includeZero)
	gemini := map[string]any{}
	putString(gemini, "api_key", cfg.LLM.Gemini.APIKey, includeZero)
	putString(gemini, "model", cfg.LLM.Gemini.Model, includeZero)
	llm := map[string]any{}
	putString(llm, "provider", cfg.LLM.Provider, includeZero)
	putDuration(llm, "timeout", cfg.LLM.Timeout, includeZero)
	if cfg.LLM.Temperature != nil {
		llm["temperature"] = *cfg.LLM.Temperature
	}
	putInt(llm, "max_output_tokens", cfg.LLM.MaxOutputTokens, includeZero)
	putSection(llm, "openai", openai)
	putSection(llm, "gemini", gemini)
	putSection(layer, "llm", llm)

	google := map[string]any{}
	putString(google, "service_account_json", cfg.Google.ServiceAccountJSON, includeZero)
	putString(google, "subject", cfg.Google.Subject, includeZero)
	putString(google, "calendar_id", cfg.Google.CalendarID, includeZero)
	putString(google, "tasklist_id", cfg.Google.TaskListID, includeZero)
	putDuration(google, "timeout", cfg.Google.Timeout, includeZero)
	putSection(layer, "google", google)

	pipeline := map[string]any{}
	putInt(pipeline, "max_concurrent_events", cfg.Pipeline.MaxConcurrentEvents, includeZero)
	putSection(layer, "pipeline", pipeline)

	logging := map[string]any{}
	putString(logging, "level", cfg.Logging.Level, includeZero)
	putString(logging, "format", cfg.Logging.Format, includeZero)
	putSection(layer, "logging", logging)
	return layer
}

func putString(target map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		target[key] = value
	}
}

func putInt(target map[string]any, key string, value int, includeZero bool) {
	if includeZero || value != 0 {
		target[key] = value
	}
}

func putDuration(target map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		target[key] = value
	}
}

func putSection(target map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		target[key] = section
	}
}
