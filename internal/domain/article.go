package domain

import "time"

// Candidate is a prospective article pulled from the news feed pool.
// SourceCount is the number of independent feeds that reported the same
// story, used as a breaking-news signal during ranking.
type Candidate struct {
	FeedID      int64
	URL         string
	Title       string
	Category    string
	SourceCount int
}

// WeightedPool is the per-run candidate pool assembled from fixed
// per-category allocations.
type WeightedPool struct {
	Candidates  []Candidate
	Allocations map[string]int
}

// Size returns the number of candidates in the pool.
func (p *WeightedPool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Candidates)
}

// RankedShortlist is an ordered best-first subset of a pool produced by
// one ranking call.
type RankedShortlist []Candidate

// ExtractedArticle is the full text of a candidate after successful
// extraction. WordCount is always at or above the configured minimum.
type ExtractedArticle struct {
	Candidate Candidate
	Title     string
	Text      string
	WordCount int
	TopImage  string
}

// FeedPost is one entry of the recent-post history window consulted for
// duplicate detection.
type FeedPost struct {
	Text      string
	Title     string
	URL       string
	Timestamp time.Time
}

// Selection is the single candidate that survived all gates in a run.
type Selection struct {
	Candidate Candidate
	Article   *ExtractedArticle
}

// GeneratedPost is the platform-bounded social post derived from an
// accepted selection. The rendered length of Text plus hashtags plus the
// article link never exceeds the platform character budget.
type GeneratedPost struct {
	Text     string
	Hashtags []string
	URL      string
}

// Rendered returns the final post text with hashtags appended.
func (g GeneratedPost) Rendered() string {
	out := g.Text
	for _, tag := range g.Hashtags {
		out += " " + tag
	}
	return out
}

// PostReceipt identifies a published post on one platform well enough to
// reconstruct it later as an embed.
type PostReceipt struct {
	Platform  string
	PostID    string
	URI       string
	CreatedAt time.Time
}

// PostRecord is persisted after a successful publish so future runs see
// the article in their history window.
type PostRecord struct {
	RunID        string
	FeedID       int64
	CandidateURL string
	Category     string
	ArticleText  string
	PostText     string
	ImageURL     string
	Receipts     []PostReceipt
}

// RunStatus enumerates the distinguishable outcomes of a single run.
type RunStatus string

const (
	StatusPosted              RunStatus = "posted"
	StatusNoEligibleCandidate RunStatus = "no_eligible_candidate"
	StatusDryRun              RunStatus = "dry_run"
)

// RunResult is the terminal outcome of one pipeline run.
type RunResult struct {
	Status    RunStatus
	Selection *Selection
	Post      *GeneratedPost
	Receipts  []PostReceipt
}
