// Package ai implements the ports.Judge contract on top of the OpenAI
// chat completions API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

const (
	rankSystemPrompt = "You are a news editor. You judge newsworthiness: " +
		"significant public interest, meaningful developments over speculation, " +
		"no sensationalism or clickbait, diverse topics."

	similaritySystemPrompt = "You compare two news items and decide whether " +
		"they describe the same underlying news event."

	summarySystemPrompt = "You write brief, factual social media posts about news " +
		"articles. No editorializing, no hashtags, no emojis. Neutral language. " +
		"Cover only the most important facts: who, what, where, when."
)

// Judge sends ranking, similarity, and summarization requests to an
// OpenAI-compatible model.
type Judge struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

var _ ports.Judge = (*Judge)(nil)

// NewJudge builds a judge from configuration.
func NewJudge(cfg config.AIConfig, logger *slog.Logger) *Judge {
	return &Judge{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
		logger: logger,
	}
}

// RankCandidates asks the model for a best-first ordering over count
// candidates and returns their indices into the input slice.
func (j *Judge) RankCandidates(ctx context.Context, candidates []domain.Candidate, count int) ([]int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Select the %d most newsworthy articles from the numbered candidates below, "+
		"ordered from most to least important.\n\n", count)
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. [%s, reported by %d sources] %s\n", i, c.Category, c.SourceCount, c.Title)
	}
	sb.WriteString("\nRespond with ONLY a JSON array of the selected candidate numbers, best first. Example: [4, 0, 7]")

	content, err := j.complete(ctx, rankSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("rank request: %w", err)
	}

	var indices []int
	if err := json.Unmarshal([]byte(extractJSONArray(content)), &indices); err != nil {
		return nil, fmt.Errorf("parse ranking %q: %w", content, err)
	}
	return indices, nil
}

// SameEvent reports whether two texts describe the same news event.
func (j *Judge) SameEvent(ctx context.Context, a, b string) (bool, error) {
	prompt := fmt.Sprintf("Do these two items cover the same specific news event?\n\n"+
		"Item A:\n%s\n\nItem B:\n%s\n\n"+
		"Return ONLY the word SIMILAR or the word DIFFERENT.", a, b)

	content, err := j.complete(ctx, similaritySystemPrompt, prompt)
	if err != nil {
		return false, fmt.Errorf("similarity request: %w", err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(content))
	switch {
	case strings.HasPrefix(verdict, "SIMILAR"):
		return true, nil
	case strings.HasPrefix(verdict, "DIFFERENT"):
		return false, nil
	default:
		return false, fmt.Errorf("unexpected similarity verdict %q", content)
	}
}

// Summarize produces a social post body within the given word budget.
func (j *Judge) Summarize(ctx context.Context, text string, wordBudget int) (string, error) {
	prompt := fmt.Sprintf("Write a social media post of at most %d words for this article. "+
		"Respond with the post text only.\n\nArticle:\n%s", wordBudget, text)

	content, err := j.complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func (j *Judge) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if j.logger != nil {
		j.logger.Debug("judge completion", "chars", len(content))
	}
	return content, nil
}

// extractJSONArray tolerates models that wrap the array in prose or code
// fences by slicing out the outermost brackets.
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
