package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "NEWS_POSTER_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	blueskyHandleEnv   = "AT_PROTOCOL_USERNAME"
	blueskyPasswordEnv = "AT_PROTOCOL_PASSWORD"
	twitterAPIKeyEnv   = "TWITTER_API_KEY"
	twitterSecretEnv   = "TWITTER_API_KEY_SECRET"
	twitterTokenEnv    = "TWITTER_ACCESS_TOKEN"
	twitterTokenSecEnv = "TWITTER_ACCESS_TOKEN_SECRET"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	AI         AIConfig         `yaml:"ai"`
	Selection  SelectionConfig  `yaml:"selection"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Composer   ComposerConfig   `yaml:"composer"`
	History    HistoryConfig    `yaml:"history"`
	Bluesky    BlueskyConfig    `yaml:"bluesky"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	Feeds      []FeedConfig     `yaml:"feeds"`
}

// LoggingConfig controls slog construction.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AIConfig defines how to reach the OpenAI-compatible judge.
type AIConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// SelectionConfig describes the pool and the ranked shortlist.
type SelectionConfig struct {
	Allocations   map[string]int `yaml:"allocations"`
	ShortlistSize int            `yaml:"shortlistSize"`
	Language      string         `yaml:"language"`
}

// PoolSize is the deterministic total implied by the allocations.
func (s SelectionConfig) PoolSize() int {
	total := 0
	for _, n := range s.Allocations {
		total += n
	}
	return total
}

// ExtractionConfig bounds both extraction stages.
type ExtractionConfig struct {
	MinWords       int           `yaml:"minWords"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout"`
	RenderTimeout  time.Duration `yaml:"renderTimeout"`
	UserAgent      string        `yaml:"userAgent"`
	PaywallDomains []string      `yaml:"paywallDomains"`
	PaywallPhrases []string      `yaml:"paywallPhrases"`
}

// SimilarityConfig tunes the two-tier duplicate check.
type SimilarityConfig struct {
	KeywordMinLen    int     `yaml:"keywordMinLen"`
	OverlapThreshold float64 `yaml:"overlapThreshold"`
	SemanticWindow   int     `yaml:"semanticWindow"`
	CompareChars     int     `yaml:"compareChars"`
}

// ComposerConfig bounds the generated social post.
type ComposerConfig struct {
	CharLimit       int     `yaml:"charLimit"`
	SummaryWords    int     `yaml:"summaryWords"`
	MaxHashtags     int     `yaml:"maxHashtags"`
	HashtagFraction float64 `yaml:"hashtagFraction"`
	LinkLength      int     `yaml:"linkLength"`
}

// HistoryConfig controls the posted-URL file and the recent-post window.
type HistoryConfig struct {
	File       string `yaml:"file"`
	MaxEntries int    `yaml:"maxEntries"`
	Cleanup    int    `yaml:"cleanup"`
	Window     int    `yaml:"window"`
}

// BlueskyConfig wires AT Protocol credentials.
type BlueskyConfig struct {
	Host     string `yaml:"host"`
	Handle   string `yaml:"handle"`
	Password string `yaml:"password"`
	Enabled  bool   `yaml:"enabled"`
}

// TwitterConfig wires OAuth 1.0a credentials for the v2 API.
type TwitterConfig struct {
	APIKey       string `yaml:"apiKey"`
	APISecret    string `yaml:"apiSecret"`
	AccessToken  string `yaml:"accessToken"`
	AccessSecret string `yaml:"accessSecret"`
	Enabled      bool   `yaml:"enabled"`
}

// FeedConfig maps an RSS feed onto a pool category, used as the candidate
// source when no database is configured.
type FeedConfig struct {
	Category string `yaml:"category"`
	URL      string `yaml:"url"`
}

// Load reads .env, YAML configuration (if present), and applies
// environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate reports missing settings that make a run impossible.
func (c Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("missing OpenAI API key")
	}
	if c.Database.DSN == "" && len(c.Feeds) == 0 {
		return fmt.Errorf("no candidate source configured: set a database DSN or RSS feeds")
	}
	blueskyOK := c.Bluesky.Enabled && c.Bluesky.Handle != "" && c.Bluesky.Password != ""
	twitterOK := c.Twitter.Enabled && c.Twitter.APIKey != "" && c.Twitter.APISecret != "" &&
		c.Twitter.AccessToken != "" && c.Twitter.AccessSecret != ""
	if !blueskyOK && !twitterOK {
		return fmt.Errorf("no social platform configured: set Bluesky or Twitter credentials")
	}
	if c.Selection.PoolSize() == 0 {
		return fmt.Errorf("selection allocations are empty")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv(blueskyHandleEnv); v != "" {
		c.Bluesky.Handle = v
		c.Bluesky.Enabled = true
	}
	if v := os.Getenv(blueskyPasswordEnv); v != "" {
		c.Bluesky.Password = v
	}
	if v := os.Getenv(twitterAPIKeyEnv); v != "" {
		c.Twitter.APIKey = v
		c.Twitter.Enabled = true
	}
	if v := os.Getenv(twitterSecretEnv); v != "" {
		c.Twitter.APISecret = v
	}
	if v := os.Getenv(twitterTokenEnv); v != "" {
		c.Twitter.AccessToken = v
	}
	if v := os.Getenv(twitterTokenSecEnv); v != "" {
		c.Twitter.AccessSecret = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}

	if len(override.Selection.Allocations) > 0 {
		base.Selection.Allocations = override.Selection.Allocations
	}
	if override.Selection.ShortlistSize > 0 {
		base.Selection.ShortlistSize = override.Selection.ShortlistSize
	}
	if override.Selection.Language != "" {
		base.Selection.Language = override.Selection.Language
	}

	if override.Extraction.MinWords > 0 {
		base.Extraction.MinWords = override.Extraction.MinWords
	}
	if override.Extraction.FetchTimeout > 0 {
		base.Extraction.FetchTimeout = override.Extraction.FetchTimeout
	}
	if override.Extraction.RenderTimeout > 0 {
		base.Extraction.RenderTimeout = override.Extraction.RenderTimeout
	}
	if override.Extraction.UserAgent != "" {
		base.Extraction.UserAgent = override.Extraction.UserAgent
	}
	if len(override.Extraction.PaywallDomains) > 0 {
		base.Extraction.PaywallDomains = override.Extraction.PaywallDomains
	}
	if len(override.Extraction.PaywallPhrases) > 0 {
		base.Extraction.PaywallPhrases = override.Extraction.PaywallPhrases
	}

	if override.Similarity.KeywordMinLen > 0 {
		base.Similarity.KeywordMinLen = override.Similarity.KeywordMinLen
	}
	if override.Similarity.OverlapThreshold > 0 {
		base.Similarity.OverlapThreshold = override.Similarity.OverlapThreshold
	}
	if override.Similarity.SemanticWindow > 0 {
		base.Similarity.SemanticWindow = override.Similarity.SemanticWindow
	}
	if override.Similarity.CompareChars > 0 {
		base.Similarity.CompareChars = override.Similarity.CompareChars
	}

	if override.Composer.CharLimit > 0 {
		base.Composer.CharLimit = override.Composer.CharLimit
	}
	if override.Composer.SummaryWords > 0 {
		base.Composer.SummaryWords = override.Composer.SummaryWords
	}
	if override.Composer.MaxHashtags > 0 {
		base.Composer.MaxHashtags = override.Composer.MaxHashtags
	}
	if override.Composer.HashtagFraction > 0 {
		base.Composer.HashtagFraction = override.Composer.HashtagFraction
	}
	if override.Composer.LinkLength > 0 {
		base.Composer.LinkLength = override.Composer.LinkLength
	}

	if override.History.File != "" {
		base.History.File = override.History.File
	}
	if override.History.MaxEntries > 0 {
		base.History.MaxEntries = override.History.MaxEntries
	}
	if override.History.Cleanup > 0 {
		base.History.Cleanup = override.History.Cleanup
	}
	if override.History.Window > 0 {
		base.History.Window = override.History.Window
	}

	if override.Bluesky.Handle != "" {
		base.Bluesky = override.Bluesky
	}
	if override.Twitter.APIKey != "" {
		base.Twitter = override.Twitter
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{},
		AI:       AIConfig{Model: "gpt-4o-mini"},
		Selection: SelectionConfig{
			Allocations:   map[string]int{"world": 60, "national": 48, "business": 12},
			ShortlistSize: 5,
			Language:      "en",
		},
		Extraction: ExtractionConfig{
			MinWords:       50,
			FetchTimeout:   20 * time.Second,
			RenderTimeout:  40 * time.Second,
			UserAgent:      defaultUserAgent,
			PaywallDomains: defaultPaywallDomains,
			PaywallPhrases: defaultPaywallPhrases,
		},
		Similarity: SimilarityConfig{
			KeywordMinLen:    4,
			OverlapThreshold: 0.5,
			SemanticWindow:   15,
			CompareChars:     500,
		},
		Composer: ComposerConfig{
			CharLimit:       280,
			SummaryWords:    40,
			MaxHashtags:     3,
			HashtagFraction: 0.25,
			LinkLength:      23,
		},
		History: HistoryConfig{
			File:       "posted_urls.txt",
			MaxEntries: 100,
			Cleanup:    10,
			Window:     60,
		},
		Bluesky: BlueskyConfig{Host: "https://bsky.social"},
	}
}
