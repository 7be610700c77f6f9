package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
)

type stubJudge struct {
	indices []int
	err     error
	calls   int
}

func (s *stubJudge) RankCandidates(ctx context.Context, candidates []domain.Candidate, count int) ([]int, error) {
	s.calls++
	return s.indices, s.err
}

func (s *stubJudge) SameEvent(ctx context.Context, a, b string) (bool, error) {
	return false, nil
}

func (s *stubJudge) Summarize(ctx context.Context, text string, wordBudget int) (string, error) {
	return "", nil
}

func poolOf(n int) *domain.WeightedPool {
	pool := &domain.WeightedPool{}
	for i := 0; i < n; i++ {
		pool.Candidates = append(pool.Candidates, domain.Candidate{
			URL:   "https://example.org/a" + string(rune('0'+i)),
			Title: "Article " + string(rune('0'+i)),
		})
	}
	return pool
}

func TestRankOrdersByJudgeIndices(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{indices: []int{3, 1, 4}}
	ranker := NewRanker(judge, nil)

	shortlist, err := ranker.Rank(context.Background(), poolOf(5), 3)
	if err != nil {
		t.Fatalf("Rank error: %v", err)
	}

	if len(shortlist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(shortlist))
	}
	if shortlist[0].Title != "Article 3" || shortlist[1].Title != "Article 1" || shortlist[2].Title != "Article 4" {
		t.Fatalf("unexpected order: %+v", shortlist)
	}
}

func TestRankEmptyPool(t *testing.T) {
	t.Parallel()

	ranker := NewRanker(&stubJudge{}, nil)
	_, err := ranker.Rank(context.Background(), &domain.WeightedPool{}, 3)
	if !errors.Is(err, domain.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
}

func TestRankCapsCountToPoolSize(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{indices: []int{0, 1}}
	ranker := NewRanker(judge, nil)

	shortlist, err := ranker.Rank(context.Background(), poolOf(2), 10)
	if err != nil {
		t.Fatalf("Rank error: %v", err)
	}
	if len(shortlist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(shortlist))
	}
}

func TestRankRejectsInvalidOrderings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		indices []int
		err     error
	}{
		{name: "judge error", err: errors.New("boom")},
		{name: "empty ordering", indices: nil},
		{name: "out of range", indices: []int{0, 7}},
		{name: "negative index", indices: []int{-1}},
		{name: "duplicate index", indices: []int{1, 1}},
		{name: "too many indices", indices: []int{0, 1, 2, 3}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ranker := NewRanker(&stubJudge{indices: tc.indices, err: tc.err}, nil)
			_, err := ranker.Rank(context.Background(), poolOf(5), 3)

			var selErr *domain.SelectionError
			if !errors.As(err, &selErr) {
				t.Fatalf("expected SelectionError, got %v", err)
			}
		})
	}
}
