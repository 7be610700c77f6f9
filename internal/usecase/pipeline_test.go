package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

type fakeSource struct {
	pool *domain.WeightedPool
	err  error
}

func (f *fakeSource) FetchPool(ctx context.Context, allocations map[string]int) (*domain.WeightedPool, error) {
	return f.pool, f.err
}

type fakeRanker struct {
	order []int
	err   error
}

func (f *fakeRanker) Rank(ctx context.Context, pool *domain.WeightedPool, count int) (domain.RankedShortlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(domain.RankedShortlist, 0, len(f.order))
	for _, i := range f.order {
		out = append(out, pool.Candidates[i])
	}
	return out, nil
}

type fakeExtractor struct {
	failures map[string]error
	words    int
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*domain.ExtractedArticle, error) {
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	return &domain.ExtractedArticle{
		Title:     "Extracted " + url,
		Text:      "full text for " + url,
		WordCount: f.words,
	}, nil
}

type fakeSimilarity struct {
	duplicates map[string]bool
	errs       map[string]error
}

func (f *fakeSimilarity) TooSimilar(ctx context.Context, title, text string, history []domain.FeedPost) (bool, error) {
	if err, ok := f.errs[title]; ok {
		return false, err
	}
	return f.duplicates[title], nil
}

type fakeComposer struct {
	err error
}

func (f *fakeComposer) Compose(ctx context.Context, article *domain.ExtractedArticle) (*domain.GeneratedPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GeneratedPost{
		Text:     "summary of " + article.Title,
		Hashtags: []string{"#News"},
		URL:      article.Candidate.URL,
	}, nil
}

type fakePublisher struct {
	name      string
	err       error
	published []domain.GeneratedPost
	recent    []domain.FeedPost
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, post domain.GeneratedPost, article *domain.ExtractedArticle) (domain.PostReceipt, error) {
	if f.err != nil {
		return domain.PostReceipt{}, f.err
	}
	f.published = append(f.published, post)
	return domain.PostReceipt{Platform: f.name, PostID: "p1", CreatedAt: time.Now()}, nil
}

func (f *fakePublisher) RecentPosts(ctx context.Context, limit int) ([]domain.FeedPost, error) {
	return f.recent, nil
}

type fakeStore struct {
	records []domain.PostRecord
}

func (f *fakeStore) SavePosted(ctx context.Context, record domain.PostRecord) error {
	f.records = append(f.records, record)
	return nil
}

type fakeHistory struct {
	urls map[string]bool
}

func (f *fakeHistory) Contains(url string) bool { return f.urls[url] }

func (f *fakeHistory) Add(url string) error {
	if f.urls == nil {
		f.urls = map[string]bool{}
	}
	f.urls[url] = true
	return nil
}

func poolOf(n int) *domain.WeightedPool {
	pool := &domain.WeightedPool{}
	for i := 0; i < n; i++ {
		pool.Candidates = append(pool.Candidates, domain.Candidate{
			FeedID:   int64(i),
			URL:      "https://example.org/story-" + string(rune('0'+i)),
			Title:    "Story " + string(rune('0'+i)),
			Category: "world",
		})
	}
	return pool
}

func TestRunAcceptsFirstSurvivingCandidate(t *testing.T) {
	t.Parallel()

	pool := poolOf(5)
	publisher := &fakePublisher{name: "bluesky"}
	store := &fakeStore{}
	history := &fakeHistory{}

	pipeline := NewPipeline(PipelineDeps{
		Source: &fakeSource{pool: pool},
		Ranker: &fakeRanker{order: []int{3, 1, 4, 2, 0}},
		Extractor: &fakeExtractor{
			words: 200,
			failures: map[string]error{
				pool.Candidates[3].URL: &domain.PaywallError{URL: pool.Candidates[3].URL, Domain: "wsj.com"},
			},
		},
		Similarity: &fakeSimilarity{
			duplicates: map[string]bool{"Extracted " + pool.Candidates[1].URL: true},
		},
		Composer:      &fakeComposer{},
		Publishers:    []ports.Publisher{publisher},
		Store:         store,
		History:       history,
		Allocations:   map[string]int{"world": 5},
		ShortlistSize: 5,
		HistoryWindow: 15,
	})

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if result.Status != domain.StatusPosted {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.Selection.Candidate.FeedID != 4 {
		t.Fatalf("expected candidate 4 accepted, got %d", result.Selection.Candidate.FeedID)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(publisher.published))
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(store.records))
	}
	if !history.urls[pool.Candidates[4].URL] {
		t.Fatal("accepted url missing from history")
	}
}

func TestRunAllCandidatesRejected(t *testing.T) {
	t.Parallel()

	pool := poolOf(5)
	publisher := &fakePublisher{name: "bluesky"}

	failures := map[string]error{}
	for _, c := range pool.Candidates {
		failures[c.URL] = &domain.InsufficientContentError{URL: c.URL, Words: 3}
	}

	pipeline := NewPipeline(PipelineDeps{
		Source:        &fakeSource{pool: pool},
		Ranker:        &fakeRanker{order: []int{0, 1, 2, 3, 4}},
		Extractor:     &fakeExtractor{failures: failures},
		Similarity:    &fakeSimilarity{},
		Composer:      &fakeComposer{},
		Publishers:    []ports.Publisher{publisher},
		Allocations:   map[string]int{"world": 5},
		ShortlistSize: 5,
	})

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != domain.StatusNoEligibleCandidate {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected zero publishes, got %d", len(publisher.published))
	}
}

func TestRunEmptyPoolIsFatal(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Source:        &fakeSource{pool: &domain.WeightedPool{}},
		Ranker:        &fakeRanker{},
		Extractor:     &fakeExtractor{},
		Similarity:    &fakeSimilarity{},
		Composer:      &fakeComposer{},
		Allocations:   map[string]int{"world": 5},
		ShortlistSize: 5,
	})

	_, err := pipeline.Run(context.Background())
	if !errors.Is(err, domain.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
}

func TestRunRankingFailureIsFatal(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Source:        &fakeSource{pool: poolOf(3)},
		Ranker:        &fakeRanker{err: &domain.SelectionError{Reason: "judge down"}},
		Extractor:     &fakeExtractor{words: 100},
		Similarity:    &fakeSimilarity{},
		Composer:      &fakeComposer{},
		Allocations:   map[string]int{"world": 3},
		ShortlistSize: 3,
	})

	_, err := pipeline.Run(context.Background())

	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestRunSimilarityErrorRejectsCandidate(t *testing.T) {
	t.Parallel()

	pool := poolOf(2)
	publisher := &fakePublisher{name: "bluesky"}

	pipeline := NewPipeline(PipelineDeps{
		Source:    &fakeSource{pool: pool},
		Ranker:    &fakeRanker{order: []int{0, 1}},
		Extractor: &fakeExtractor{words: 100},
		Similarity: &fakeSimilarity{
			errs: map[string]error{
				"Extracted " + pool.Candidates[0].URL: &domain.DuplicateError{Err: errors.New("api down")},
			},
		},
		Composer:      &fakeComposer{},
		Publishers:    []ports.Publisher{publisher},
		Allocations:   map[string]int{"world": 2},
		ShortlistSize: 2,
	})

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Selection.Candidate.FeedID != 1 {
		t.Fatalf("expected candidate 1 accepted, got %d", result.Selection.Candidate.FeedID)
	}
}

func TestRunSkipsURLsAlreadyInHistory(t *testing.T) {
	t.Parallel()

	pool := poolOf(2)
	publisher := &fakePublisher{name: "bluesky"}

	pipeline := NewPipeline(PipelineDeps{
		Source:        &fakeSource{pool: pool},
		Ranker:        &fakeRanker{order: []int{0, 1}},
		Extractor:     &fakeExtractor{words: 100},
		Similarity:    &fakeSimilarity{},
		Composer:      &fakeComposer{},
		Publishers:    []ports.Publisher{publisher},
		History:       &fakeHistory{urls: map[string]bool{pool.Candidates[0].URL: true}},
		Allocations:   map[string]int{"world": 2},
		ShortlistSize: 2,
	})

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Selection.Candidate.FeedID != 1 {
		t.Fatalf("expected candidate 1 accepted, got %d", result.Selection.Candidate.FeedID)
	}
}

func TestRunDryRunSkipsPublish(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{name: "bluesky"}

	pipeline := NewPipeline(PipelineDeps{
		Source:        &fakeSource{pool: poolOf(1)},
		Ranker:        &fakeRanker{order: []int{0}},
		Extractor:     &fakeExtractor{words: 100},
		Similarity:    &fakeSimilarity{},
		Composer:      &fakeComposer{},
		Publishers:    []ports.Publisher{publisher},
		Allocations:   map[string]int{"world": 1},
		ShortlistSize: 1,
		DryRun:        true,
	})

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != domain.StatusDryRun {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("dry run must not publish, got %d", len(publisher.published))
	}
}
