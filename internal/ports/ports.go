package ports

import (
	"context"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
)

// CandidateSource supplies the weighted candidate pool for a run.
type CandidateSource interface {
	FetchPool(ctx context.Context, allocations map[string]int) (*domain.WeightedPool, error)
}

// Judge abstracts the external AI calls the core depends on: ranking,
// semantic equivalence, and summarization. The core assumes only the
// contracts, not the provider.
type Judge interface {
	RankCandidates(ctx context.Context, candidates []domain.Candidate, count int) ([]int, error)
	SameEvent(ctx context.Context, a, b string) (bool, error)
	Summarize(ctx context.Context, text string, wordBudget int) (string, error)
}

// Renderer drives a browser for the slow extraction path: rendering
// JavaScript-gated pages and resolving aggregator redirect chains.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	ResolveURL(ctx context.Context, url string) (string, error)
}

// Publisher posts to one social platform and exposes that platform's
// recent posts for the similarity window.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post domain.GeneratedPost, article *domain.ExtractedArticle) (domain.PostReceipt, error)
	RecentPosts(ctx context.Context, limit int) ([]domain.FeedPost, error)
}

// PostStore persists the outcome of a successful publish so future runs
// see the article in their history window.
type PostStore interface {
	SavePosted(ctx context.Context, record domain.PostRecord) error
}

// URLHistory tracks article URLs that were already posted, independent of
// any platform's feed.
type URLHistory interface {
	Contains(url string) bool
	Add(url string) error
}
