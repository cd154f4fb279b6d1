package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.PlannerErrorExternalFailure {
		t.Fatalf("expected %q text code, got %q", core.PlannerErrorExternalFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{})
	if err == nil {
		t.Fatalf("expected nil adapter error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.PlannerErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.PlannerErrorInternal, rich.TextCode)
	}
}

func TestStatusError_MapsCategories(t *testing.T) {
	cases := map[int]goerrors.Category{
		http.StatusUnauthorized:        goerrors.CategoryAuth,
		http.StatusForbidden:           goerrors.CategoryAuthz,
		http.StatusTooManyRequests:     goerrors.CategoryRateLimit,
		http.StatusBadRequest:          goerrors.CategoryBadInput,
		http.StatusInternalServerError: goerrors.CategoryExternal,
	}
	for status, category := range cases {
		err := StatusError("line", core.TransportResponse{StatusCode: status, Body: []byte(`{"message":"x"}`)}, "x")
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%d: expected go-errors envelope", status)
		}
		if rich.Category != category {
			t.Fatalf("%d: expected %q, got %q", status, category, rich.Category)
		}
		if rich.Code != status {
			t.Fatalf("%d: expected code to mirror status, got %d", status, rich.Code)
		}
		if rich.Message != fmt.Sprintf("line: status %d: x", status) {
			t.Fatalf("%d: unexpected message %q", status, rich.Message)
		}
	}
	if err := StatusError("line", core.TransportResponse{StatusCode: http.StatusOK}, ""); err != nil {
		t.Fatalf("expected nil for 2xx, got %v", err)
	}
}
