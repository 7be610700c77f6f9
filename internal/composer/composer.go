package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

const (
	truncationMarker = "…"
	maxPromptChars   = 4000
)

// Composer turns an extracted article into a platform-length-bounded
// social post with hashtags. The AI produces the summary; the hard
// character budget is enforced locally regardless of what it returns.
type Composer struct {
	judge           ports.Judge
	charLimit       int
	summaryWords    int
	maxHashtags     int
	hashtagFraction float64
	linkLength      int
	logger          *slog.Logger
}

// New builds a composer from configuration.
func New(cfg config.ComposerConfig, judge ports.Judge, logger *slog.Logger) *Composer {
	return &Composer{
		judge:           judge,
		charLimit:       cfg.CharLimit,
		summaryWords:    cfg.SummaryWords,
		maxHashtags:     cfg.MaxHashtags,
		hashtagFraction: cfg.HashtagFraction,
		linkLength:      cfg.LinkLength,
		logger:          logger,
	}
}

// Compose summarizes the article and assembles the final post. The
// rendered text plus hashtags plus the link length never exceeds the
// character budget; truncation happens at word boundaries with a marker,
// and the link is never dropped.
func (c *Composer) Compose(ctx context.Context, article *domain.ExtractedArticle) (*domain.GeneratedPost, error) {
	text := article.Text
	if utf8.RuneCountInString(text) > maxPromptChars {
		text = string([]rune(text)[:maxPromptChars])
	}

	summary, err := c.judge.Summarize(ctx, text, c.summaryWords)
	if err != nil {
		return nil, &domain.GenerationError{Err: err}
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, &domain.GenerationError{Err: fmt.Errorf("judge returned empty summary")}
	}

	// The link is appended by the publisher; reserve its rendered length
	// (platforms shorten links to a fixed width) plus a separating space.
	budget := c.charLimit - c.linkLength - 1
	if budget <= 0 {
		return nil, &domain.GenerationError{Err: fmt.Errorf("character limit %d leaves no room for text", c.charLimit)}
	}

	summary = truncateAtWord(summary, budget)

	tags := c.hashtags(article, budget-utf8.RuneCountInString(summary))

	post := &domain.GeneratedPost{
		Text:     summary,
		Hashtags: tags,
		URL:      article.Candidate.URL,
	}

	if c.logger != nil {
		c.logger.Debug("post composed",
			"chars", utf8.RuneCountInString(post.Rendered()),
			"hashtags", len(tags))
	}
	return post, nil
}

// hashtags derives tags from the candidate's category and caps them so
// they never consume more than the configured fraction of what remains
// after the summary and link are placed.
func (c *Composer) hashtags(article *domain.ExtractedArticle, remaining int) []string {
	allowance := int(float64(remaining) * c.hashtagFraction)
	if allowance <= 0 || c.maxHashtags <= 0 {
		return nil
	}

	var tags []string
	seen := map[string]struct{}{}
	for _, raw := range append([]string{article.Candidate.Category, "news"}, topicWords(article.Title)...) {
		tag := toHashtag(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}

		cost := utf8.RuneCountInString(tag) + 1 // leading space
		if cost > allowance {
			continue
		}

		seen[tag] = struct{}{}
		tags = append(tags, tag)
		allowance -= cost
		if len(tags) >= c.maxHashtags {
			break
		}
	}
	return tags
}

// topicWords picks a couple of distinctive capitalized words from the
// headline to use as topic tags.
func topicWords(title string) []string {
	var out []string
	for _, w := range strings.Fields(title) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(trimmed) < 5 {
			continue
		}
		first, _ := utf8.DecodeRuneInString(trimmed)
		if !unicode.IsUpper(first) {
			continue
		}
		out = append(out, trimmed)
		if len(out) == 2 {
			break
		}
	}
	return out
}

func toHashtag(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	tag := b.String()
	first, size := utf8.DecodeRuneInString(tag)
	return "#" + string(unicode.ToUpper(first)) + tag[size:]
}

// truncateAtWord shortens text to at most limit runes, cutting at the
// last whole word and appending the truncation marker.
func truncateAtWord(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	markerLen := utf8.RuneCountInString(truncationMarker)
	cut := limit - markerLen
	if cut <= 0 {
		return truncationMarker
	}

	truncated := string(runes[:cut])
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimRightFunc(truncated, unicode.IsSpace) + truncationMarker
}
