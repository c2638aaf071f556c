package cryptopanic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

func TestPostsParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("auth_token") != "tok" {
			t.Errorf("missing token")
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"SEC sues exchange","description":"d","url":"https://x/1","published_at":"2026-01-01T10:00:00Z","source":{"title":"Wire"}},
			{"title":"  ","url":"https://x/2"},
			{"title":"Slug only","slug":"slug-only","published_at":"2026-01-01T11:00:00Z","source":{"domain":"d.io"}}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", time.Second)
	posts, err := c.Posts(context.Background())
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Source != "Wire" || posts[0].Summary != "d" {
		t.Fatalf("unexpected first post %+v", posts[0])
	}
	if posts[1].URL != "https://cryptopanic.com/news/slug-only" || posts[1].Source != "d.io" {
		t.Fatalf("unexpected second post %+v", posts[1])
	}
}

func TestPostsRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>challenge</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", time.Second)
	if _, err := c.Posts(context.Background()); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
