package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-planner-bot/adapters/gologger"
	"github.com/goliatone/go-planner-bot/adapters/prommetrics"
	"github.com/goliatone/go-planner-bot/command"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/inbound"
	"github.com/goliatone/go-planner-bot/intent"
	"github.com/goliatone/go-planner-bot/notify"
	"github.com/goliatone/go-planner-bot/providers/gemini"
	"github.com/goliatone/go-planner-bot/providers/google/calendar"
	"github.com/goliatone/go-planner-bot/providers/google/common"
	"github.com/goliatone/go-planner-bot/providers/google/tasks"
	"github.com/goliatone/go-planner-bot/providers/line"
	"github.com/goliatone/go-planner-bot/providers/openai"
	"github.com/goliatone/go-planner-bot/server"
	"github.com/goliatone/go-planner-bot/webhooks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type app struct {
	logger *zap.Logger
	server *server.Server
}

// buildApp constructs every shared client once. They are read-only after
// this point and safe for concurrent events.
func buildApp(ctx context.Context, cfg core.Config) (*app, error) {
	zl, err := gologger.NewZap(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	zl = zl.With(zap.String("service", cfg.ServiceName), zap.String("version", version))
	provider := gologger.NewZapProvider(zl)
	logger := provider.GetLogger("plannerbot")

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := prommetrics.NewRecorder(registry)

	llm, err := newCompletionClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	googleOpts, err := common.ClientOptions(ctx, cfg.Google, common.DefaultScopes()...)
	if err != nil {
		return nil, err
	}
	calendarClient, err := calendar.New(ctx, cfg.Google.Timeout, googleOpts...)
	if err != nil {
		return nil, err
	}
	tasksClient, err := tasks.New(ctx, cfg.Google.Timeout, googleOpts...)
	if err != nil {
		return nil, err
	}

	extractor := intent.NewExtractor(llm, cfg.LLM, loc)
	extractor.Logger = provider.GetLogger("intent")

	service, err := core.NewService(cfg,
		core.WithLoggerProvider(provider),
		core.WithMetricsRecorder(metrics),
		core.WithIntentExtractor(extractor),
		core.WithActionDispatcher(command.NewDispatcher(
			command.NewCreateCalendarEventQuery(calendarClient, cfg.Google.CalendarID, cfg.Timezone),
			command.NewCreateTaskQuery(tasksClient, cfg.Google.TaskListID),
		)),
		core.WithNotifier(notify.New(line.NewPushClient(cfg.LINE, nil), loc)),
	)
	if err != nil {
		return nil, err
	}

	dispatcher := inbound.NewDispatcher(cfg.Pipeline.MaxConcurrentEvents, provider.GetLogger("inbound"))
	dispatcher.Metrics = metrics
	if err := dispatcher.Register(service); err != nil {
		return nil, err
	}
	processor := webhooks.NewProcessor(line.NewWebhookTemplate(cfg.LINE.ChannelSecret), dispatcher)
	processor.MaxBodyBytes = cfg.Server.MaxBodyBytes

	srv := server.New(service.Config(), processor,
		server.WithLogger(provider.GetLogger("server")),
		server.WithGatherer(registry),
		server.WithAIDescriptor(llm.Provider()+"/"+llm.Model()),
	)

	if fields, ok := logger.(core.FieldsLogger); ok {
		fields.WithFields(cfg.LogFields()).Info("configuration resolved")
		fields.WithFields(cfg.CredentialFields()).Info("credentials loaded")
	}
	return &app{logger: zl, server: srv}, nil
}

func newCompletionClient(ctx context.Context, cfg core.LLMConfig) (core.CompletionClient, error) {
	switch cfg.ProviderName() {
	case core.LLMProviderOpenAI:
		return openai.New(cfg, nil), nil
	case core.LLMProviderGemini:
		client, err := gemini.New(ctx, cfg, nil)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("llm provider %q is not supported", cfg.Provider)
	}
}

func (a *app) run(ctx context.Context) error {
	return a.server.ListenAndServe(ctx)
}

func (a *app) close() {
	if a != nil && a.logger != nil {
		_ = a.logger.Sync()
	}
}
