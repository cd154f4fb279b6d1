package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-planner-bot/core"
)

func TestRESTAdapter_SendsHeadersAndBody(t *testing.T) {
	var gotAuth, gotRetry, gotType, gotAgent, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRetry = r.Header.Get("X-Line-Retry-Key")
		gotType = r.Header.Get("Content-Type")
		gotAgent = r.Header.Get("User-Agent")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.IdempotencyHeader = "X-Line-Retry-Key"

	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:      http.MethodPost,
		URL:         server.URL + "/v2/bot/message/push",
		Headers:     map[string]string{"Authorization": "Bearer tok"},
		Body:        []byte(`{"to":"U1"}`),
		Idempotency: "retry-1",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if res.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("expected response headers to be flattened, got %#v", res.Headers)
	}
	if gotAuth != "Bearer tok" || gotRetry != "retry-1" || gotType != "application/json" {
		t.Fatalf("unexpected headers auth=%q retry=%q type=%q", gotAuth, gotRetry, gotType)
	}
	if gotAgent != "go-planner-bot" {
		t.Fatalf("expected default user agent, got %q", gotAgent)
	}
	if gotBody != `{"to":"U1"}` {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestRESTAdapter_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  http.MethodGet,
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestRESTAdapter_RejectsMissingHost(t *testing.T) {
	_, err := NewRESTAdapter(nil).Do(context.Background(), core.TransportRequest{URL: "/relative"})
	if err == nil {
		t.Fatalf("expected missing host error")
	}
}
