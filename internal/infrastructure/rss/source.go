// Package rss supplies the candidate pool from RSS feeds, used when no
// article database is configured.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// Source fetches configured feeds and fills each category up to its
// allocation. Items carry a source count of one since a single feed
// cannot corroborate a story.
type Source struct {
	feeds  []config.FeedConfig
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.CandidateSource = (*Source)(nil)

// NewSource builds an RSS candidate source.
func NewSource(feeds []config.FeedConfig, userAgent string, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: 20 * time.Second}

	return &Source{feeds: feeds, parser: parser, logger: logger}
}

// FetchPool reads every configured feed and keeps at most the category's
// allocation of items, newest first as the feed presents them. A feed
// that fails to parse is skipped; the pool is only as empty as every
// feed failing.
func (s *Source) FetchPool(ctx context.Context, allocations map[string]int) (*domain.WeightedPool, error) {
	pool := &domain.WeightedPool{Allocations: allocations}
	taken := make(map[string]int, len(allocations))

	for _, fc := range s.feeds {
		limit, ok := allocations[fc.Category]
		if !ok || taken[fc.Category] >= limit {
			continue
		}

		feed, err := s.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			s.logger.Warn("feed fetch failed", "url", fc.URL, "error", err)
			continue
		}

		for _, item := range feed.Items {
			if taken[fc.Category] >= limit {
				break
			}
			if item.Link == "" || item.Title == "" {
				continue
			}
			pool.Candidates = append(pool.Candidates, domain.Candidate{
				URL:         item.Link,
				Title:       item.Title,
				Category:    fc.Category,
				SourceCount: 1,
			})
			taken[fc.Category]++
		}
	}

	if s.logger != nil {
		s.logger.Debug("candidate pool assembled", "size", pool.Size())
	}
	if pool.Size() == 0 && len(s.feeds) > 0 {
		return nil, fmt.Errorf("all %d feeds failed or were empty", len(s.feeds))
	}
	return pool, nil
}
