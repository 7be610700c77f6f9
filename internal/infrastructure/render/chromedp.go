// Package render drives a headless browser for pages that only produce
// readable content after executing JavaScript, and for following
// aggregator redirect chains to the publisher URL.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// Browser implements ports.Renderer on a shared headless Chrome
// allocator. Each call runs in its own browser context so a crashed tab
// cannot poison later calls.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.Renderer = (*Browser)(nil)

// NewBrowser starts a headless Chrome allocator. Close must be called to
// release it.
func NewBrowser(userAgent string, timeout time.Duration, logger *slog.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
		logger:   logger,
	}
}

// Close shuts down the allocator and every browser it spawned.
func (b *Browser) Close() {
	b.cancel()
}

// Render navigates to url, waits for the document body, and returns the
// post-JavaScript HTML.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	if b.logger != nil {
		b.logger.Debug("page rendered", "url", url, "chars", len(html))
	}
	return html, nil
}

// ResolveURL navigates to url and returns the final location after any
// client-side redirects have settled.
func (b *Browser) ResolveURL(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()

	var location string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
	)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", url, err)
	}
	return location, nil
}

// tab derives a fresh browser context from the allocator, bounded by the
// configured timeout and cancelled if the caller's context is.
func (b *Browser) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	timeoutCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)

	return timeoutCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}
}
