package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// Extractor retrieves full article text through a fast direct pass with a
// slow browser-rendered fallback for paywalled or JavaScript-gated pages.
type Extractor struct {
	client         *http.Client
	renderer       ports.Renderer
	minWords       int
	userAgent      string
	paywallDomains map[string]struct{}
	paywallPhrases []string
	logger         *slog.Logger
}

// New builds an extractor from configuration. The renderer may be nil, in
// which case the slow path is unavailable and short content fails outright.
func New(cfg config.ExtractionConfig, renderer ports.Renderer, client *http.Client, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}

	domains := make(map[string]struct{}, len(cfg.PaywallDomains))
	for _, d := range cfg.PaywallDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}

	phrases := make([]string, 0, len(cfg.PaywallPhrases))
	for _, p := range cfg.PaywallPhrases {
		phrases = append(phrases, strings.ToLower(p))
	}

	return &Extractor{
		client:         client,
		renderer:       renderer,
		minWords:       cfg.MinWords,
		userAgent:      cfg.UserAgent,
		paywallDomains: domains,
		paywallPhrases: phrases,
		logger:         logger,
	}
}

// Extract fetches and parses the article at rawURL. Known paywall domains
// are rejected before any network call. If the fast pass yields too little
// text or paywall markers, the page is re-fetched through the renderer.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*domain.ExtractedArticle, error) {
	if blocked, base := e.paywalledDomain(rawURL); blocked {
		return nil, &domain.PaywallError{URL: rawURL, Domain: base}
	}

	html, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}

	title, text, image, parseErr := e.parse(html, rawURL)
	words := countWords(text)

	if parseErr == nil && words >= e.minWords {
		return &domain.ExtractedArticle{Title: title, Text: text, WordCount: words, TopImage: image}, nil
	}

	// Too little text, a failed parse, or paywall markers all warrant the
	// slow path: some paywalled pages expose partial free content only
	// after rendering.
	escalate := parseErr != nil || words < e.minWords || e.looksPaywalled(html)

	if escalate && e.renderer != nil {
		e.debug("escalating to renderer", "url", rawURL, "words", words)

		rendered, rerr := e.renderer.Render(ctx, rawURL)
		if rerr != nil {
			return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("render fallback: %w", rerr)}
		}

		rTitle, rText, rImage, rParseErr := e.parse(rendered, rawURL)
		if rParseErr != nil && parseErr != nil {
			return nil, &domain.ParseError{URL: rawURL, Err: rParseErr}
		}

		if rWords := countWords(rText); rWords > words {
			title, text, words = rTitle, rText, rWords
			if rImage != "" {
				image = rImage
			}
		}
	} else if parseErr != nil {
		return nil, &domain.ParseError{URL: rawURL, Err: parseErr}
	}

	if words < e.minWords {
		return nil, &domain.InsufficientContentError{URL: rawURL, Words: words}
	}

	return &domain.ExtractedArticle{Title: title, Text: text, WordCount: words, TopImage: image}, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return out, nil
}

// parse runs readability over the HTML, falling back to joining long
// paragraph nodes when readability finds nothing usable.
func (e *Extractor) parse(html, rawURL string) (title, text, image string, err error) {
	pageURL, uerr := url.Parse(rawURL)
	if uerr != nil {
		return "", "", "", fmt.Errorf("invalid url: %w", uerr)
	}

	article, rerr := readability.FromReader(strings.NewReader(html), pageURL)
	if rerr == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
		image = article.Image
	}

	doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if derr != nil {
		if rerr != nil {
			return "", "", "", fmt.Errorf("readability: %w", rerr)
		}
		return title, text, image, nil
	}

	if countWords(text) < e.minWords {
		if fallback := paragraphText(doc); countWords(fallback) > countWords(text) {
			text = fallback
		}
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if image == "" {
		image = metaImage(doc)
	}

	if text == "" {
		if rerr != nil {
			return "", "", "", fmt.Errorf("readability: %w", rerr)
		}
		return "", "", "", fmt.Errorf("no article text found")
	}
	return title, text, image, nil
}

// looksPaywalled reports whether the HTML carries known paywall markers.
// It is a heuristic used only when the fast pass came up short.
func (e *Extractor) looksPaywalled(html string) bool {
	lowered := strings.ToLower(html)
	for _, phrase := range e.paywallPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// paywalledDomain matches the registrable base domain against the static
// blocklist, so sub.example.com matches a listed example.com.
func (e *Extractor) paywalledDomain(rawURL string) (bool, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false, ""
	}

	host := strings.ToLower(parsed.Hostname())
	parts := strings.Split(host, ".")
	base := host
	if len(parts) > 1 {
		base = strings.Join(parts[len(parts)-2:], ".")
	}

	_, blocked := e.paywallDomains[base]
	return blocked, base
}

func paragraphText(doc *goquery.Document) string {
	var chunks []string
	doc.Find("article p, .article-content p, #article-body p, p").Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if len(t) > 20 {
			chunks = append(chunks, t)
		}
	})
	return strings.Join(chunks, " ")
}

func metaImage(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			return content
		}
	}
	return ""
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
