// Package bluesky publishes posts over the AT Protocol XRPC surface.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

const (
	platformName = "bluesky"

	sessionPath    = "/xrpc/com.atproto.server.createSession"
	createPath     = "/xrpc/com.atproto.repo.createRecord"
	uploadPath     = "/xrpc/com.atproto.repo.uploadBlob"
	authorFeedPath = "/xrpc/app.bsky.feed.getAuthorFeed"

	maxThumbBytes = 1_000_000
)

// Client is a minimal XRPC client for the feed-post lexicon. It signs in
// lazily on first use and reuses the session for the rest of the run.
type Client struct {
	host     string
	handle   string
	password string
	http     *http.Client
	logger   *slog.Logger

	accessJWT string
	did       string
}

var _ ports.Publisher = (*Client)(nil)

// NewClient builds a BlueSky publisher from configuration.
func NewClient(cfg config.BlueskyConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		host:     cfg.Host,
		handle:   cfg.Handle,
		password: cfg.Password,
		http:     httpClient,
		logger:   logger,
	}
}

// Name identifies the platform in receipts and logs.
func (c *Client) Name() string { return platformName }

type sessionResponse struct {
	AccessJWT string `json:"accessJwt"`
	DID       string `json:"did"`
}

type blobRef struct {
	Type string `json:"$type"`
	Ref  struct {
		Link string `json:"$link"`
	} `json:"ref"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

type externalEmbed struct {
	Type     string `json:"$type"`
	External struct {
		URI         string   `json:"uri"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Thumb       *blobRef `json:"thumb,omitempty"`
	} `json:"external"`
}

type postRecord struct {
	Type      string         `json:"$type"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Langs     []string       `json:"langs,omitempty"`
	Embed     *externalEmbed `json:"embed,omitempty"`
}

// Publish creates a feed post with a website-card embed for the article.
// A failed thumbnail upload degrades to a card without an image.
func (c *Client) Publish(ctx context.Context, post domain.GeneratedPost, article *domain.ExtractedArticle) (domain.PostReceipt, error) {
	if err := c.ensureSession(ctx); err != nil {
		return domain.PostReceipt{}, err
	}

	embed := &externalEmbed{Type: "app.bsky.embed.external"}
	embed.External.URI = post.URL
	embed.External.Title = article.Title
	embed.External.Description = post.Text

	if article.TopImage != "" {
		thumb, err := c.uploadThumb(ctx, article.TopImage)
		if err != nil {
			c.logger.Warn("thumbnail upload failed, posting without image",
				"image", article.TopImage, "error", err)
		} else {
			embed.External.Thumb = thumb
		}
	}

	now := time.Now().UTC()
	body := map[string]any{
		"repo":       c.did,
		"collection": "app.bsky.feed.post",
		"record": postRecord{
			Type:      "app.bsky.feed.post",
			Text:      post.Rendered(),
			CreatedAt: now.Format(time.RFC3339),
			Langs:     []string{"en"},
			Embed:     embed,
		},
	}

	var created struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if err := c.call(ctx, http.MethodPost, createPath, nil, body, &created); err != nil {
		return domain.PostReceipt{}, err
	}

	c.logger.Info("published", "platform", platformName, "uri", created.URI)
	return domain.PostReceipt{
		Platform:  platformName,
		PostID:    created.CID,
		URI:       created.URI,
		CreatedAt: now,
	}, nil
}

// RecentPosts returns the newest entries of the account's own feed for
// the duplicate-detection window.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]domain.FeedPost, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"actor": {c.did},
		"limit": {strconv.Itoa(limit)},
	}

	var feed struct {
		Feed []struct {
			Post struct {
				Record struct {
					Text      string    `json:"text"`
					CreatedAt time.Time `json:"createdAt"`
				} `json:"record"`
				Embed struct {
					External struct {
						URI   string `json:"uri"`
						Title string `json:"title"`
					} `json:"external"`
				} `json:"embed"`
			} `json:"post"`
		} `json:"feed"`
	}
	if err := c.call(ctx, http.MethodGet, authorFeedPath, params, nil, &feed); err != nil {
		return nil, err
	}

	posts := make([]domain.FeedPost, 0, len(feed.Feed))
	for _, entry := range feed.Feed {
		posts = append(posts, domain.FeedPost{
			Text:      entry.Post.Record.Text,
			Title:     entry.Post.Embed.External.Title,
			URL:       entry.Post.Embed.External.URI,
			Timestamp: entry.Post.Record.CreatedAt,
		})
	}
	return posts, nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessJWT != "" {
		return nil
	}

	body := map[string]string{
		"identifier": c.handle,
		"password":   c.password,
	}
	var session sessionResponse
	if err := c.call(ctx, http.MethodPost, sessionPath, nil, body, &session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.accessJWT = session.AccessJWT
	c.did = session.DID
	return nil
}

// uploadThumb fetches the article image and uploads it as a blob for the
// embed card. Oversized images are skipped rather than rejected upstream.
func (c *Client) uploadThumb(ctx context.Context, imageURL string) (*blobRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxThumbBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxThumbBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	upload, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+uploadPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	upload.Header.Set("Content-Type", mimeType)
	upload.Header.Set("Authorization", "Bearer "+c.accessJWT)

	resp, err = c.http.Do(upload)
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload blob: status %d", resp.StatusCode)
	}

	var uploaded struct {
		Blob blobRef `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("decode blob response: %w", err)
	}
	return &uploaded.Blob, nil
}

// call performs one XRPC request and decodes the JSON response into out.
// Non-2xx statuses become PublishErrors classified by status code.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.host + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessJWT != "" && path != sessionPath {
		req.Header.Set("Authorization", "Bearer "+c.accessJWT)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.PublishError{Platform: platformName, Kind: domain.PublishKindOther, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &domain.PublishError{
			Platform: platformName,
			Kind:     classifyStatus(resp.StatusCode),
			Err:      fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, detail),
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
