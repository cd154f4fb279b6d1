package gologger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger exposes a zap sugared logger through the glog contracts.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

// NewZap builds a zap logger for level (debug|info|warn|error) and format
// (json|console).
func NewZap(level string, format string) (*zap.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		config.Encoding = "json"
	case "console", "text":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("gologger: unsupported log format %q", format)
	}
	return config.Build()
}

func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("gologger: unsupported log level %q", level)
	}
}

func (l *ZapLogger) Trace(msg string, args ...any) { l.sugared().Debugw(msg, args...) }
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugared().Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugared().Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugared().Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugared().Errorw(msg, args...) }
func (l *ZapLogger) Fatal(msg string, args ...any) { l.sugared().Fatalw(msg, args...) }

func (l *ZapLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *ZapLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return &ZapLogger{sugar: l.sugared().With(args...)}
}

func (l *ZapLogger) Named(name string) *ZapLogger {
	name = strings.TrimSpace(name)
	if name == "" {
		return l
	}
	return &ZapLogger{sugar: l.sugared().Named(name)}
}

func (l *ZapLogger) Sync() error {
	return l.sugared().Sync()
}

func (l *ZapLogger) sugared() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}
	return l.sugar
}

// ZapProvider hands out named children of one root logger.
type ZapProvider struct {
	Root *ZapLogger
}

func NewZapProvider(logger *zap.Logger) *ZapProvider {
	return &ZapProvider{Root: NewZapLogger(logger)}
}

func (p *ZapProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.Root == nil {
		return glog.Nop()
	}
	return p.Root.Named(name)
}

var (
	_ glog.Logger         = (*ZapLogger)(nil)
	_ glog.FieldsLogger   = (*ZapLogger)(nil)
	_ glog.LoggerProvider = (*ZapProvider)(nil)
)
