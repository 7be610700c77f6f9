package selection

import (
	"fmt"
	"log/slog"

	"context"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// Ranker produces an AI-ordered shortlist of the most newsworthy
// candidates from a weighted pool.
type Ranker struct {
	judge  ports.Judge
	logger *slog.Logger
}

// NewRanker wires the AI judge.
func NewRanker(judge ports.Judge, logger *slog.Logger) *Ranker {
	return &Ranker{judge: judge, logger: logger}
}

// Rank asks the judge for a best-first ordering over at most count
// candidates. The judge returns indices into the pool; an unparsable or
// invalid ordering fails the run rather than degrading to pool order.
func (r *Ranker) Rank(ctx context.Context, pool *domain.WeightedPool, count int) (domain.RankedShortlist, error) {
	if pool.Size() == 0 {
		return nil, domain.ErrEmptyPool
	}
	if count > pool.Size() {
		count = pool.Size()
	}
	if count <= 0 {
		return nil, &domain.SelectionError{Reason: fmt.Sprintf("invalid shortlist size %d", count)}
	}

	indices, err := r.judge.RankCandidates(ctx, pool.Candidates, count)
	if err != nil {
		return nil, &domain.SelectionError{Reason: "judge call failed", Err: err}
	}

	if len(indices) == 0 {
		return nil, &domain.SelectionError{Reason: "judge returned no ordering"}
	}
	if len(indices) > count {
		return nil, &domain.SelectionError{Reason: fmt.Sprintf("judge returned %d indices, requested %d", len(indices), count)}
	}

	seen := make(map[int]struct{}, len(indices))
	shortlist := make(domain.RankedShortlist, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= pool.Size() {
			return nil, &domain.SelectionError{Reason: fmt.Sprintf("index %d out of range", idx)}
		}
		if _, dup := seen[idx]; dup {
			return nil, &domain.SelectionError{Reason: fmt.Sprintf("duplicate index %d", idx)}
		}
		seen[idx] = struct{}{}
		shortlist = append(shortlist, pool.Candidates[idx])
	}

	if r.logger != nil {
		r.logger.Debug("shortlist ranked", "pool", pool.Size(), "shortlist", len(shortlist))
	}
	return shortlist, nil
}
