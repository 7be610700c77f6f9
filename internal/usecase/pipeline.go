package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// candidateState tracks a candidate's progress through the gates.
type candidateState string

const (
	statePending         candidateState = "pending"
	stateExtracting      candidateState = "extracting"
	stateQualityCheck    candidateState = "quality_check"
	stateSimilarityCheck candidateState = "similarity_check"
	stateAccepted        candidateState = "accepted"
	stateRejected        candidateState = "rejected"
)

// aggregatorHosts are redirect-only link hosts that must be resolved to
// the real article URL before extraction.
var aggregatorHosts = []string{"news.google.com"}

// Ranker orders a weighted pool into a best-first shortlist.
type Ranker interface {
	Rank(ctx context.Context, pool *domain.WeightedPool, count int) (domain.RankedShortlist, error)
}

// Extractor retrieves full article text for a single URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*domain.ExtractedArticle, error)
}

// SimilarityChecker decides whether a candidate duplicates recent posts.
type SimilarityChecker interface {
	TooSimilar(ctx context.Context, title, text string, history []domain.FeedPost) (bool, error)
}

// Composer produces the outgoing social post for an accepted article.
type Composer interface {
	Compose(ctx context.Context, article *domain.ExtractedArticle) (*domain.GeneratedPost, error)
}

// PipelineDeps wires all collaborators into the selection pipeline.
type PipelineDeps struct {
	Source        ports.CandidateSource
	Ranker        Ranker
	Extractor     Extractor
	Similarity    SimilarityChecker
	Composer      Composer
	Publishers    []ports.Publisher
	Store         ports.PostStore
	History       ports.URLHistory
	Renderer      ports.Renderer
	Allocations   map[string]int
	ShortlistSize int
	HistoryWindow int
	DryRun        bool
	RunID         string
	Logger        *slog.Logger
}

// Pipeline walks a ranked shortlist best-first, applying extraction,
// quality, and similarity gates until one candidate survives, then
// composes, publishes, and persists the result. One run produces at most
// one post.
type Pipeline struct {
	source        ports.CandidateSource
	ranker        Ranker
	extractor     Extractor
	similarity    SimilarityChecker
	composer      Composer
	publishers    []ports.Publisher
	store         ports.PostStore
	history       ports.URLHistory
	renderer      ports.Renderer
	allocations   map[string]int
	shortlistSize int
	historyWindow int
	dryRun        bool
	runID         string
	logger        *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:        deps.Source,
		ranker:        deps.Ranker,
		extractor:     deps.Extractor,
		similarity:    deps.Similarity,
		composer:      deps.Composer,
		publishers:    deps.Publishers,
		store:         deps.Store,
		history:       deps.History,
		renderer:      deps.Renderer,
		allocations:   deps.Allocations,
		shortlistSize: deps.ShortlistSize,
		historyWindow: deps.HistoryWindow,
		dryRun:        deps.DryRun,
		runID:         deps.RunID,
		logger:        deps.Logger,
	}
}

// Run executes one complete selection run. Rejections of individual
// candidates are local and advance the cursor; ranking failures, an empty
// pool, and publish failures are fatal to the run.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunResult, error) {
	pool, err := p.source.FetchPool(ctx, p.allocations)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate pool: %w", err)
	}
	if pool.Size() == 0 {
		return nil, domain.ErrEmptyPool
	}
	p.info("candidate pool fetched", "size", pool.Size())

	recent := p.fetchRecentPosts(ctx)
	p.info("recent post history fetched", "entries", len(recent))

	shortlist, err := p.ranker.Rank(ctx, pool, p.shortlistSize)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	p.info("shortlist ranked", "size", len(shortlist))

	selection := p.walkShortlist(ctx, shortlist, recent)
	if selection == nil {
		p.info("all shortlisted candidates rejected")
		return &domain.RunResult{Status: domain.StatusNoEligibleCandidate}, nil
	}

	post, err := p.composer.Compose(ctx, selection.Article)
	if err != nil {
		return nil, fmt.Errorf("compose post: %w", err)
	}

	if p.dryRun {
		p.info("dry run, skipping publish", "title", selection.Article.Title, "post", post.Rendered())
		return &domain.RunResult{Status: domain.StatusDryRun, Selection: selection, Post: post}, nil
	}

	receipts, err := p.publish(ctx, selection, post)
	if err != nil {
		return nil, err
	}

	return &domain.RunResult{
		Status:    domain.StatusPosted,
		Selection: selection,
		Post:      post,
		Receipts:  receipts,
	}, nil
}

// walkShortlist processes candidates strictly in rank order, one at a
// time: extraction and similarity checks carry real API cost, so no
// speculative work happens for lower-ranked candidates. Returns nil when
// the shortlist is exhausted.
func (p *Pipeline) walkShortlist(ctx context.Context, shortlist domain.RankedShortlist, recent []domain.FeedPost) *domain.Selection {
	for i, candidate := range shortlist {
		if ctx.Err() != nil {
			return nil
		}

		state := statePending
		log := p.logWith("rank", i, "title", candidate.Title)

		if p.history != nil && p.history.Contains(candidate.URL) {
			p.reject(log, &state, fmt.Errorf("url already posted: %s", candidate.URL))
			continue
		}

		url := p.resolveAggregatorURL(ctx, candidate.URL, log)
		candidate.URL = url

		state = stateExtracting
		article, err := p.extractor.Extract(ctx, url)
		if err != nil {
			p.reject(log, &state, err)
			continue
		}
		article.Candidate = candidate
		if article.Title == "" {
			article.Title = candidate.Title
		}

		// Extraction enforces the minimum word count, so reaching here
		// means the quality gate passed.
		state = stateQualityCheck

		state = stateSimilarityCheck
		dup, err := p.similarity.TooSimilar(ctx, article.Title, article.Text, recent)
		if err != nil {
			p.reject(log, &state, err)
			continue
		}
		if dup {
			p.reject(log, &state, &domain.DuplicateError{Title: article.Title, Tier: "window"})
			continue
		}

		state = stateAccepted
		log.Info("candidate accepted", "state", string(state), "words", article.WordCount)
		return &domain.Selection{Candidate: candidate, Article: article}
	}

	return nil
}

// publish posts to every configured platform. Success on at least one
// platform counts as a posted run; each success is persisted separately
// so per-platform history stays accurate.
func (p *Pipeline) publish(ctx context.Context, selection *domain.Selection, post *domain.GeneratedPost) ([]domain.PostReceipt, error) {
	var (
		receipts []domain.PostReceipt
		lastErr  error
	)

	for _, pub := range p.publishers {
		receipt, err := pub.Publish(ctx, *post, selection.Article)
		if err != nil {
			p.info("platform publish failed", "platform", pub.Name(), "error", err)
			lastErr = err
			continue
		}
		p.info("published", "platform", pub.Name(), "post_id", receipt.PostID)
		receipts = append(receipts, receipt)
	}

	if len(receipts) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no publishers configured")
		}
		return nil, fmt.Errorf("publish: %w", lastErr)
	}

	if p.store != nil {
		record := domain.PostRecord{
			RunID:        p.runID,
			FeedID:       selection.Candidate.FeedID,
			CandidateURL: selection.Candidate.URL,
			Category:     selection.Candidate.Category,
			ArticleText:  selection.Article.Text,
			PostText:     post.Rendered(),
			ImageURL:     selection.Article.TopImage,
			Receipts:     receipts,
		}
		if err := p.store.SavePosted(ctx, record); err != nil {
			p.info("persist post record failed", "error", err)
		}
	}

	if p.history != nil {
		if err := p.history.Add(selection.Candidate.URL); err != nil {
			p.info("append url history failed", "error", err)
		}
	}

	return receipts, nil
}

// fetchRecentPosts merges each platform's recent feed into one history
// window. Failures degrade to an empty contribution; the similarity gate
// still fails safe through its own error handling.
func (p *Pipeline) fetchRecentPosts(ctx context.Context) []domain.FeedPost {
	var recent []domain.FeedPost
	for _, pub := range p.publishers {
		posts, err := pub.RecentPosts(ctx, p.historyWindow)
		if err != nil {
			p.info("fetch recent posts failed", "platform", pub.Name(), "error", err)
			continue
		}
		recent = append(recent, posts...)
	}
	return recent
}

// resolveAggregatorURL turns aggregator redirect links into the real
// article URL via the renderer. On failure the original URL is kept and
// extraction decides its fate.
func (p *Pipeline) resolveAggregatorURL(ctx context.Context, url string, log *slog.Logger) string {
	if p.renderer == nil || !isAggregatorURL(url) {
		return url
	}

	resolved, err := p.renderer.ResolveURL(ctx, url)
	if err != nil || resolved == "" {
		log.Warn("aggregator url resolution failed", "error", err)
		return url
	}
	log.Debug("aggregator url resolved", "resolved", resolved)
	return resolved
}

func isAggregatorURL(url string) bool {
	for _, host := range aggregatorHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}

// reject records an observable rejection transition; the pipeline then
// advances to the next candidate.
func (p *Pipeline) reject(log *slog.Logger, state *candidateState, cause error) {
	from := *state
	*state = stateRejected
	log.Warn("candidate rejected", "at", string(from), "reason", cause)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) logWith(args ...any) *slog.Logger {
	if p.logger != nil {
		return p.logger.With(args...)
	}
	return slog.New(slog.DiscardHandler)
}
