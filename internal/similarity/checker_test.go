package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
)

type stubJudge struct {
	same  bool
	err   error
	calls int
}

func (s *stubJudge) RankCandidates(ctx context.Context, candidates []domain.Candidate, count int) ([]int, error) {
	return nil, nil
}

func (s *stubJudge) SameEvent(ctx context.Context, a, b string) (bool, error) {
	s.calls++
	return s.same, s.err
}

func (s *stubJudge) Summarize(ctx context.Context, text string, wordBudget int) (string, error) {
	return "", nil
}

func testChecker(judge *stubJudge) *Checker {
	return NewChecker(config.SimilarityConfig{
		KeywordMinLen:    4,
		OverlapThreshold: 0.5,
		SemanticWindow:   15,
		CompareChars:     500,
	}, judge, nil)
}

func history(titles ...string) []domain.FeedPost {
	posts := make([]domain.FeedPost, 0, len(titles))
	for _, t := range titles {
		posts = append(posts, domain.FeedPost{Title: t})
	}
	return posts
}

func TestKeywordOverlapShortCircuitsSemanticCheck(t *testing.T) {
	t.Parallel()

	// The judge errors if invoked; a tier-1 match must never reach it.
	judge := &stubJudge{err: errors.New("must not be called")}
	checker := testChecker(judge)

	dup, err := checker.TooSimilar(context.Background(),
		"Parliament Approves Sweeping Budget Reform Package",
		"full article text",
		history("Parliament approves sweeping budget reform after long debate"))
	if err != nil {
		t.Fatalf("TooSimilar error: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate verdict from keyword overlap")
	}
	if judge.calls != 0 {
		t.Fatalf("semantic judge was called %d times", judge.calls)
	}
}

func TestSemanticMatchIsDuplicate(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{same: true}
	checker := testChecker(judge)

	dup, err := checker.TooSimilar(context.Background(),
		"Storm Closes Coastal Highways",
		"text",
		history("Central Bank Holds Interest Rates Steady"))
	if err != nil {
		t.Fatalf("TooSimilar error: %v", err)
	}
	if !dup {
		t.Fatal("expected semantic duplicate")
	}
	if judge.calls != 1 {
		t.Fatalf("expected 1 judge call, got %d", judge.calls)
	}
}

func TestSemanticErrorIsSoftDuplicate(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{err: errors.New("api down")}
	checker := testChecker(judge)

	_, err := checker.TooSimilar(context.Background(),
		"Storm Closes Coastal Highways",
		"text",
		history("Central Bank Holds Interest Rates Steady"))

	var dupErr *domain.DuplicateError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestSemanticWindowShortCircuitsAtFirstMatch(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{same: true}
	checker := testChecker(judge)

	dup, err := checker.TooSimilar(context.Background(),
		"Storm Closes Coastal Highways",
		"text",
		history("First Unrelated Story", "Second Unrelated Story", "Third Unrelated Story"))
	if err != nil {
		t.Fatalf("TooSimilar error: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate")
	}
	if judge.calls != 1 {
		t.Fatalf("expected short-circuit after first match, got %d calls", judge.calls)
	}
}

func TestSemanticWindowIsBounded(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	checker := NewChecker(config.SimilarityConfig{
		KeywordMinLen:    4,
		OverlapThreshold: 0.5,
		SemanticWindow:   2,
		CompareChars:     500,
	}, judge, nil)

	dup, err := checker.TooSimilar(context.Background(),
		"Storm Closes Coastal Highways",
		"text",
		history("Alpha Story Headline", "Beta Story Headline", "Gamma Story Headline", "Delta Story Headline"))
	if err != nil {
		t.Fatalf("TooSimilar error: %v", err)
	}
	if dup {
		t.Fatal("unexpected duplicate")
	}
	if judge.calls != 2 {
		t.Fatalf("expected 2 judge calls, got %d", judge.calls)
	}
}

func TestDistinctTitlesAreNotDuplicates(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	checker := testChecker(judge)

	dup, err := checker.TooSimilar(context.Background(),
		"Storm Closes Coastal Highways",
		"text",
		history("Central Bank Holds Interest Rates Steady"))
	if err != nil {
		t.Fatalf("TooSimilar error: %v", err)
	}
	if dup {
		t.Fatal("unexpected duplicate verdict")
	}
}
