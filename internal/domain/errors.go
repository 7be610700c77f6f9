package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned when the candidate pool contains no articles.
// It is run-fatal: nothing can be ranked, extracted, or posted.
var ErrEmptyPool = errors.New("candidate pool is empty")

// SelectionError reports a failed or invalid AI ranking. The ranker never
// falls back to an unranked order, so this aborts the run.
type SelectionError struct {
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("article selection failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("article selection failed: %s", e.Reason)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// FetchError reports that an article could not be retrieved, including
// timeouts on either extraction stage.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch article %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed content that could not be parsed into
// article text by either extraction stage.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse article %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InsufficientContentError reports that both extraction stages produced
// less text than the configured minimum word count.
type InsufficientContentError struct {
	URL   string
	Words int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("insufficient content at %s: %d words", e.URL, e.Words)
}

// PaywallError reports a candidate whose domain is on the static paywall
// list; extraction is skipped entirely for these.
type PaywallError struct {
	URL    string
	Domain string
}

func (e *PaywallError) Error() string {
	return fmt.Sprintf("paywall domain %s blocks %s", e.Domain, e.URL)
}

// DuplicateError reports that a candidate is too similar to a recently
// posted article, or that the semantic check errored. A failed semantic
// check is deliberately classified as a duplicate so the pipeline fails
// safe toward not double-posting.
type DuplicateError struct {
	Title   string
	Matched string
	Tier    string
	Err     error
}

func (e *DuplicateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("similarity check failed for %q, treating as duplicate: %v", e.Title, e.Err)
	}
	return fmt.Sprintf("duplicate content (%s tier): %q matches %q", e.Tier, e.Title, e.Matched)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// GenerationError reports that the AI post composition call failed or
// returned empty content.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("post generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PublishErrorKind distinguishes platform failure modes.
type PublishErrorKind string

const (
	PublishKindAuth      PublishErrorKind = "auth"
	PublishKindRateLimit PublishErrorKind = "rate_limit"
	PublishKindOther     PublishErrorKind = "other"
)

// PublishError reports a platform-level posting failure.
type PublishError struct {
	Platform string
	Kind     PublishErrorKind
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s failed (%s): %v", e.Platform, e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
