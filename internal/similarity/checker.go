package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// stopWords are common words that carry no topical signal and are
// excluded from the keyword overlap check.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "against": {}, "amid": {}, "been": {},
	"could": {}, "from": {}, "have": {}, "into": {}, "more": {},
	"over": {}, "says": {}, "said": {}, "that": {}, "their": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {},
	"with": {}, "would": {}, "your": {},
}

// Checker decides whether a candidate article is a near-duplicate of
// recently posted content. A cheap keyword-overlap tier short-circuits
// before the expensive semantic tier is consulted.
type Checker struct {
	judge            ports.Judge
	keywordMinLen    int
	overlapThreshold float64
	semanticWindow   int
	compareChars     int
	logger           *slog.Logger
}

// NewChecker builds the checker from configuration.
func NewChecker(cfg config.SimilarityConfig, judge ports.Judge, logger *slog.Logger) *Checker {
	return &Checker{
		judge:            judge,
		keywordMinLen:    cfg.KeywordMinLen,
		overlapThreshold: cfg.OverlapThreshold,
		semanticWindow:   cfg.SemanticWindow,
		compareChars:     cfg.CompareChars,
		logger:           logger,
	}
}

// TooSimilar reports whether the candidate covers the same story as any
// entry of the history window. Tier 1 scans the full window locally; tier
// 2 asks the semantic judge for at most the first semanticWindow entries,
// stopping at the first match. A judge error is returned as a soft
// DuplicateError: the caller must treat the candidate as rejected, never
// as unique.
func (c *Checker) TooSimilar(ctx context.Context, title, text string, history []domain.FeedPost) (bool, error) {
	titleWords := c.keywords(title)

	for _, post := range history {
		if post.Title == "" {
			continue
		}
		postWords := c.keywords(post.Title)
		ratio := overlapRatio(titleWords, postWords)
		if ratio >= c.overlapThreshold {
			c.info("keyword overlap duplicate", "ratio", fmt.Sprintf("%.2f", ratio), "title", title, "matched", post.Title)
			return true, nil
		}
	}

	candidate := "Title: " + title + "\n" + truncate(text, c.compareChars)

	checked := 0
	for _, post := range history {
		if checked >= c.semanticWindow {
			break
		}
		if post.Title == "" {
			continue
		}
		checked++

		same, err := c.judge.SameEvent(ctx, candidate, "Title: "+post.Title+"\n"+truncate(post.Text, c.compareChars))
		if err != nil {
			return false, &domain.DuplicateError{Title: title, Err: err}
		}
		if same {
			c.info("semantic duplicate", "title", title, "matched", post.Title)
			return true, nil
		}
	}

	return false, nil
}

// keywords extracts significant lowercase words from a title.
func (c *Checker) keywords(title string) map[string]struct{} {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(title), "")
	out := map[string]struct{}{}
	for _, w := range strings.Fields(cleaned) {
		if len(w) < c.keywordMinLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// overlapRatio is |a ∩ b| / min(|a|, |b|).
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func (c *Checker) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}
