// Package storage implements the candidate pool and the posted-article
// archive on Postgres.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

const poolWindow = 24 * time.Hour

// Store reads candidates from the feeds table and archives published
// posts. One Store is safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	builder  sq.StatementBuilderType
	language string
	logger   *slog.Logger
}

var (
	_ ports.CandidateSource = (*Store)(nil)
	_ ports.PostStore       = (*Store)(nil)
)

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool, language string, logger *slog.Logger) *Store {
	return &Store{
		pool:     pool,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		language: language,
		logger:   logger,
	}
}

// FetchPool assembles the weighted candidate pool, querying each category
// for exactly its allocation. A category with fewer fresh rows than its
// allocation contributes what it has.
func (s *Store) FetchPool(ctx context.Context, allocations map[string]int) (*domain.WeightedPool, error) {
	pool := &domain.WeightedPool{Allocations: allocations}

	for category, limit := range allocations {
		if limit <= 0 {
			continue
		}
		candidates, err := s.fetchCategory(ctx, category, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s candidates: %w", category, err)
		}
		pool.Candidates = append(pool.Candidates, candidates...)
	}

	if s.logger != nil {
		s.logger.Debug("candidate pool assembled", "size", pool.Size())
	}
	return pool, nil
}

func (s *Store) fetchCategory(ctx context.Context, category string, limit int) ([]domain.Candidate, error) {
	query, args, err := s.candidateQuery(category, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		c := domain.Candidate{Category: category}
		if err := rows.Scan(&c.FeedID, &c.URL, &c.Title, &c.SourceCount); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// candidateQuery prefers widely-reported stories, then randomizes within
// equal source counts so reruns do not walk identical pools.
func (s *Store) candidateQuery(category string, limit int) sq.SelectBuilder {
	return s.builder.
		Select("id", "url", "title", "source_count").
		From("feeds").
		Where(sq.Eq{"category": category, "language": s.language, "used": false}).
		Where(sq.Gt{"source_count": 0}).
		Where(sq.GtOrEq{"published_at": time.Now().UTC().Add(-poolWindow)}).
		OrderBy("source_count DESC", "random()").
		Limit(uint64(limit))
}

// SavePosted archives the published post and marks the feed row used, in
// one transaction so a crash cannot leave the two out of step.
func (s *Store) SavePosted(ctx context.Context, record domain.PostRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := s.builder.
		Insert("posts").
		Columns("run_id", "feed_id", "url", "category", "article_text", "post_text", "image_url", "posted_at")
	query, args, err := insert.
		Values(record.RunID, record.FeedID, record.CandidateURL, record.Category,
			record.ArticleText, record.PostText, record.ImageURL, time.Now().UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build post insert: %w", err)
	}

	var postID int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&postID); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	for _, receipt := range record.Receipts {
		query, args, err := s.builder.
			Insert("post_receipts").
			Columns("post_id", "platform", "platform_post_id", "uri", "created_at").
			Values(postID, receipt.Platform, receipt.PostID, receipt.URI, receipt.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build receipt insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s receipt: %w", receipt.Platform, err)
		}
	}

	query, args, err = s.builder.
		Update("feeds").
		Set("used", true).
		Where(sq.Eq{"id": record.FeedID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feed update: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark feed used: %w", err)
	}

	return tx.Commit(ctx)
}
