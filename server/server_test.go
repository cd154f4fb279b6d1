package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/adapters/prommetrics"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/prometheus/client_golang/prometheus"
)

type stubProcessor struct {
	requests []core.InboundRequest
	result   core.InboundResult
	err      error
}

func (p *stubProcessor) Process(_ context.Context, req core.InboundRequest) (core.InboundResult, error) {
	p.requests = append(p.requests, req)
	return p.result, p.err
}

func fixedClock() core.Clock {
	return core.ClockFunc(func() time.Time { return time.Date(2026, 10, 14, 1, 2, 3, 0, time.UTC) })
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestServer_LivenessEndpoints(t *testing.T) {
	srv := New(core.DefaultConfig(), &stubProcessor{}, WithClock(fixedClock()), WithAIDescriptor("openai/gpt-4o-mini"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if body := decodeBody(t, rec); rec.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "planner-bot" {
		t.Fatalf("unexpected root response %d %v", rec.Code, body)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	body := decodeBody(t, rec)
	if body["status"] != "OK" || body["timestamp"] != "2026-10-14T01:02:03Z" || body["ai"] != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected health response %v", body)
	}
}

func TestServer_WebhookPassesRawBodyAndHeaders(t *testing.T) {
	processor := &stubProcessor{result: core.InboundResult{Accepted: true, StatusCode: http.StatusOK}}
	srv := New(core.DefaultConfig(), processor)

	payload := []byte(`{"events":[]}`)
	req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader(payload))
	req.Header.Set("X-Line-Signature", "sig")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	got := processor.requests[0]
	if string(got.Body) != string(payload) || got.Headers["X-Line-Signature"] != "sig" {
		t.Fatalf("unexpected inbound request %+v", got)
	}
}

func TestServer_WebhookRejections(t *testing.T) {
	unauthorized := goerrors.New("bad signature", goerrors.CategoryAuth).WithTextCode(core.PlannerErrorUnauthorized)
	cases := []struct {
		name   string
		result core.InboundResult
		err    error
		status int
		code   string
	}{
		{"unauthorized", core.InboundResult{StatusCode: http.StatusUnauthorized}, unauthorized, http.StatusUnauthorized, core.PlannerErrorUnauthorized},
		{"malformed", core.InboundResult{StatusCode: http.StatusInternalServerError}, errors.New("decode"), http.StatusInternalServerError, core.PlannerErrorInternal},
		{"no status", core.InboundResult{}, errors.New("boom"), http.StatusInternalServerError, core.PlannerErrorInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := New(core.DefaultConfig(), &stubProcessor{result: tc.result, err: tc.err})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{}")))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if body := decodeBody(t, rec); body["code"] != tc.code {
				t.Fatalf("expected code %q, got %v", tc.code, body)
			}
		})
	}
}

func TestServer_WebhookRejectsOversizedBodyBeforeProcessing(t *testing.T) {
	processor := &stubProcessor{result: core.InboundResult{StatusCode: http.StatusOK}}
	cfg := core.DefaultConfig()
	cfg.Server.MaxBodyBytes = 8
	srv := New(cfg, processor)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(strings.Repeat("x", 100))))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != core.PlannerErrorBadInput {
		t.Fatalf("expected bad input code, got %v", body)
	}
	if len(processor.requests) != 0 {
		t.Fatalf("expected oversized body to skip the processor")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("12345678")))
	if rec.Code != http.StatusOK || len(processor.requests) != 1 {
		t.Fatalf("expected body at the limit to be processed, got %d", rec.Code)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := prommetrics.NewRecorder(registry)
	recorder.IncCounter(context.Background(), "planner.events.total", 1, map[string]string{"status": "success"})

	srv := New(core.DefaultConfig(), &stubProcessor{}, WithGatherer(registry))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "planner_events_total") {
		t.Fatalf("expected metrics exposition, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	New(core.DefaultConfig(), &stubProcessor{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected metrics to be absent without gatherer, got %d", rec.Code)
	}
}

func TestServer_ServeStopsOnContextCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := core.DefaultConfig()
	cfg.Server.ShutdownTimeout = time.Second
	srv := New(cfg, &stubProcessor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	res, err := http.Get("http://" + listener.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	_ = res.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
