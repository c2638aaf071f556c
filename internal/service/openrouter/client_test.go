package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "m/free" || len(body.Messages) != 2 || body.MaxTokens != 90 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Market looks choppy. "}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", time.Second)
	got, err := c.Complete(context.Background(), service.CompletionRequest{
		Model: "m/free",
		Messages: []service.ChatMessage{
			{Role: "system", Content: "s"},
			{Role: "user", Content: "u"},
		},
		Temperature: 0.4,
		MaxTokens:   90,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "Market looks choppy." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestCompleteEmptyAndErrors(t *testing.T) {
	body := `{"choices":[{"message":{"content":"   "}}]}`
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := New(srv.URL, "key", time.Second)
	req := service.CompletionRequest{Model: "m"}

	if _, err := c.Complete(context.Background(), req); !errors.Is(err, models.ErrUpstreamEmpty) {
		t.Fatalf("expected empty, got %v", err)
	}

	body = `{"error":{"message":"model overloaded"}}`
	if _, err := c.Complete(context.Background(), req); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected unavailable for error payload, got %v", err)
	}

	status = http.StatusTooManyRequests
	if _, err := c.Complete(context.Background(), req); !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}
