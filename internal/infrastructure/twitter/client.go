// Package twitter publishes posts through the Twitter v2 API, signed
// with OAuth 1.0a user context.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

const (
	platformName = "twitter"

	defaultBaseURL = "https://api.twitter.com/2"
)

// Client posts tweets for one user account. The article link is appended
// to the post text; the composer already budgets for the t.co wrapper
// length, so the combined tweet stays within the platform limit.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	userID string
}

var _ ports.Publisher = (*Client)(nil)

// NewClient builds a Twitter publisher with an OAuth1-signing HTTP client.
func NewClient(cfg config.TwitterConfig, logger *slog.Logger) *Client {
	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthConfig.Client(oauth1.NoContext, token)
	httpClient.Timeout = 30 * time.Second

	return &Client{baseURL: defaultBaseURL, http: httpClient, logger: logger}
}

// Name identifies the platform in receipts and logs.
func (c *Client) Name() string { return platformName }

// Publish creates a tweet of the rendered post followed by the article
// link.
func (c *Client) Publish(ctx context.Context, post domain.GeneratedPost, article *domain.ExtractedArticle) (domain.PostReceipt, error) {
	payload := map[string]string{
		"text": post.Rendered() + " " + post.URL,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return domain.PostReceipt{}, fmt.Errorf("encode tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(encoded))
	if err != nil {
		return domain.PostReceipt{}, fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return domain.PostReceipt{}, err
	}

	c.logger.Info("published", "platform", platformName, "id", created.Data.ID)
	return domain.PostReceipt{
		Platform:  platformName,
		PostID:    created.Data.ID,
		URI:       "https://twitter.com/i/web/status/" + created.Data.ID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RecentPosts returns the account's latest tweets for the
// duplicate-detection window.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]domain.FeedPost, error) {
	if err := c.ensureUserID(ctx); err != nil {
		return nil, err
	}

	// The v2 timeline endpoint accepts 5..100.
	if limit < 5 {
		limit = 5
	}
	if limit > 100 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at",
		c.baseURL, c.userID, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build timeline request: %w", err)
	}

	var timeline struct {
		Data []struct {
			Text      string    `json:"text"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"data"`
	}
	if err := c.do(req, http.StatusOK, &timeline); err != nil {
		return nil, err
	}

	posts := make([]domain.FeedPost, 0, len(timeline.Data))
	for _, tweet := range timeline.Data {
		posts = append(posts, domain.FeedPost{
			Text:      tweet.Text,
			Timestamp: tweet.CreatedAt,
		})
	}
	return posts, nil
}

func (c *Client) ensureUserID(ctx context.Context) error {
	if c.userID != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return fmt.Errorf("build user request: %w", err)
	}

	var me struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(req, http.StatusOK, &me); err != nil {
		return fmt.Errorf("resolve user id: %w", err)
	}
	c.userID = me.Data.ID
	return nil
}

func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.PublishError{Platform: platformName, Kind: domain.PublishKindOther, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &domain.PublishError{
			Platform: platformName,
			Kind:     classifyStatus(resp.StatusCode),
			Err:      fmt.Errorf("%s: status %d: %s", req.URL.Path, resp.StatusCode, detail),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyStatus(status int) domain.PublishErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.PublishKindAuth
	case http.StatusTooManyRequests:
		return domain.PublishKindRateLimit
	default:
		return domain.PublishKindOther
	}
}
