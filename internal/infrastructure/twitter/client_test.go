package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &Client{
		baseURL: server.URL,
		http:    server.Client(),
		logger:  slog.New(slog.DiscardHandler),
	}
}

func TestPublishAppendsLink(t *testing.T) {
	t.Parallel()

	var tweetBody map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&tweetBody); err != nil {
			t.Fatalf("decode tweet body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1700000000000000001","text":"ok"}}`))
	}))

	post := domain.GeneratedPost{
		Text:     "Officials announced the accord today.",
		Hashtags: []string{"#World", "#News"},
		URL:      "https://news.example.com/accord",
	}

	receipt, err := client.Publish(context.Background(), post, &domain.ExtractedArticle{})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if receipt.Platform != "twitter" {
		t.Errorf("Platform = %q", receipt.Platform)
	}
	if receipt.PostID != "1700000000000000001" {
		t.Errorf("PostID = %q", receipt.PostID)
	}

	text := tweetBody["text"]
	if !strings.HasSuffix(text, " "+post.URL) {
		t.Errorf("tweet does not end with link: %q", text)
	}
	if !strings.Contains(text, "#News") {
		t.Errorf("tweet missing hashtags: %q", text)
	}
}

func TestPublishClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   domain.PublishErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, domain.PublishKindAuth},
		{"forbidden", http.StatusForbidden, domain.PublishKindAuth},
		{"rate limited", http.StatusTooManyRequests, domain.PublishKindRateLimit},
		{"server error", http.StatusInternalServerError, domain.PublishKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.Publish(context.Background(), domain.GeneratedPost{}, &domain.ExtractedArticle{})
			var pubErr *domain.PublishError
			if !errors.As(err, &pubErr) {
				t.Fatalf("want PublishError, got %v", err)
			}
			if pubErr.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", pubErr.Kind, tt.want)
			}
		})
	}
}

func TestRecentPostsResolvesUserOnce(t *testing.T) {
	t.Parallel()

	meCalls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me":
			meCalls++
			w.Write([]byte(`{"data":{"id":"42"}}`))
		case strings.HasPrefix(r.URL.Path, "/users/42/tweets"):
			if got := r.URL.Query().Get("max_results"); got != "60" {
				t.Errorf("max_results = %q", got)
			}
			w.Write([]byte(`{"data":[
				{"text":"Breaking news update","created_at":"2026-08-29T09:00:00Z"},
				{"text":"Earlier story","created_at":"2026-08-28T09:00:00Z"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	for range 2 {
		posts, err := client.RecentPosts(context.Background(), 60)
		if err != nil {
			t.Fatalf("RecentPosts: %v", err)
		}
		if len(posts) != 2 {
			t.Fatalf("got %d posts, want 2", len(posts))
		}
		if posts[0].Text != "Breaking news update" {
			t.Errorf("first post = %+v", posts[0])
		}
	}
	if meCalls != 1 {
		t.Errorf("users/me called %d times, want 1", meCalls)
	}
}

func TestRecentPostsClampsLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me":
			w.Write([]byte(`{"data":{"id":"42"}}`))
		default:
			if got := r.URL.Query().Get("max_results"); got != "100" {
				t.Errorf("max_results = %q, want 100", got)
			}
			w.Write([]byte(`{"data":[]}`))
		}
	}))

	if _, err := client.RecentPosts(context.Background(), 500); err != nil {
		t.Fatalf("RecentPosts: %v", err)
	}
}
