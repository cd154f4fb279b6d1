package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	WebhookPath = "/webhook"
	HealthPath  = "/health"
	MetricsPath = "/metrics"

	defaultShutdownTimeout = 10 * time.Second
)

// WebhookProcessor verifies, decodes and dispatches one delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

type Option func(*Server)

func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves gatherer on /metrics. Without it the endpoint is not
// registered.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func WithClock(clock core.Clock) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAIDescriptor sets the "ai" field reported by /health.
func WithAIDescriptor(descriptor string) Option {
	return func(s *Server) {
		s.aiDescriptor = strings.TrimSpace(descriptor)
	}
}

type Server struct {
	config       core.ServerConfig
	serviceName  string
	aiDescriptor string
	processor    WebhookProcessor
	gatherer     prometheus.Gatherer
	logger       core.Logger
	clock        core.Clock
	engine       *gin.Engine
}

func New(cfg core.Config, processor WebhookProcessor, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:      cfg.Server,
		serviceName: cfg.ServiceName,
		processor:   processor,
		logger:      glog.Nop(),
		clock:       core.ClockFunc(time.Now),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET(HealthPath, s.handleHealth)
	s.engine.POST(WebhookPath, s.handleWebhook)
	if s.gatherer != nil {
		s.engine.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.serviceName})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
		"service":   s.serviceName,
		"ai":        s.aiDescriptor,
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.processor == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "code": core.PlannerErrorInternal})
		return
	}
	limit := s.config.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		s.logger.Error("webhook body read failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "code": core.PlannerErrorBadInput})
		return
	}
	// the signature covers the full body, reject before verification
	if int64(len(body)) > limit {
		s.logger.Warn("webhook rejected", "status", http.StatusInternalServerError, "code", core.PlannerErrorBadInput,
			"error", fmt.Sprintf("body exceeds limit of %d bytes", limit))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "code": core.PlannerErrorBadInput})
		return
	}

	result, err := s.processor.Process(c.Request.Context(), core.InboundRequest{
		Surface: WebhookPath,
		Headers: flattenHeaders(c.Request.Header),
		Body:    body,
	})
	status := result.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
		if err == nil {
			status = http.StatusOK
		}
	}
	if err != nil {
		textCode := core.PlannerErrorInternal
		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.TextCode != "" {
			textCode = rich.TextCode
		}
		s.logger.Warn("webhook rejected", "status", status, "code", textCode, "error", err.Error())
		c.JSON(status, gin.H{"status": "error", "code": textCode})
		return
	}
	s.logger.Info("webhook processed",
		"events", result.Metadata["events"],
		"handled", result.Metadata["handled"],
		"ignored", result.Metadata["ignored"],
		"failed", result.Metadata["failed"],
		"panicked", result.Metadata["panicked"],
	)
	c.JSON(status, gin.H{"status": "ok"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for at most the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("server: listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.logger.Info("server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("server shutting down", "timeout", timeout.String())
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		out[key] = values[0]
	}
	return out
}
