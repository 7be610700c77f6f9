package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/composer"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/extractor"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/history"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/ai"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/bluesky"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/render"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/rss"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/storage"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/infrastructure/twitter"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/logging"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/selection"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/similarity"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/usecase"
)

// Options adjust a single run without touching persistent configuration.
type Options struct {
	// DryRun walks the full pipeline but skips publishing and persistence.
	DryRun bool
	// Platforms restricts publishing to the named platforms. Empty means
	// every configured platform.
	Platforms []string
}

// Application wires configuration into a runnable pipeline and owns the
// resources that need explicit shutdown.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	dbPool   *pgxpool.Pool
	browser  *render.Browser
	logger   *slog.Logger
}

// New builds a runnable application instance. Close must be called after
// the run.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	runID := uuid.NewString()
	logger := baseLogger.With("run_id", runID)

	judge := ai.NewJudge(cfg.AI, logger.With("component", "judge"))
	browser := render.NewBrowser(cfg.Extraction.UserAgent, cfg.Extraction.RenderTimeout,
		logger.With("component", "renderer"))

	app := &Application{cfg: cfg, browser: browser, logger: logger}

	var source ports.CandidateSource
	var store ports.PostStore
	if cfg.Database.DSN != "" {
		pool, err := storage.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.dbPool = pool
		dbStore := storage.New(pool, cfg.Selection.Language, logger.With("component", "storage"))
		source = dbStore
		store = dbStore
	} else {
		source = rss.NewSource(cfg.Feeds, cfg.Extraction.UserAgent, logger.With("component", "rss"))
	}

	publishers, err := buildPublishers(cfg, opts.Platforms, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Extraction.FetchTimeout}

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:        source,
		Ranker:        selection.NewRanker(judge, logger.With("component", "ranker")),
		Extractor:     extractor.New(cfg.Extraction, browser, httpClient, logger.With("component", "extractor")),
		Similarity:    similarity.NewChecker(cfg.Similarity, judge, logger.With("component", "similarity")),
		Composer:      composer.New(cfg.Composer, judge, logger.With("component", "composer")),
		Publishers:    publishers,
		Store:         store,
		History:       history.NewFile(cfg.History.File, cfg.History.MaxEntries, cfg.History.Cleanup),
		Renderer:      browser,
		Allocations:   cfg.Selection.Allocations,
		ShortlistSize: cfg.Selection.ShortlistSize,
		HistoryWindow: cfg.History.Window,
		DryRun:        opts.DryRun,
		RunID:         runID,
		Logger:        logger.With("component", "pipeline"),
	})
	return app, nil
}

// Run executes one selection run and reports its outcome.
func (a *Application) Run(ctx context.Context) (*domain.RunResult, error) {
	start := time.Now()
	result, err := a.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Info("run finished",
		"status", result.Status,
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// Close releases the database pool and the headless browser.
func (a *Application) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.browser != nil {
		a.browser.Close()
	}
}

// buildPublishers instantiates every enabled platform, optionally
// filtered to an explicit subset.
func buildPublishers(cfg config.Config, only []string, logger *slog.Logger) ([]ports.Publisher, error) {
	wanted := func(name string) bool {
		return len(only) == 0 || slices.Contains(only, name)
	}

	var publishers []ports.Publisher
	if cfg.Bluesky.Enabled && wanted("bluesky") {
		publishers = append(publishers,
			bluesky.NewClient(cfg.Bluesky, nil, logger.With("component", "bluesky")))
	}
	if cfg.Twitter.Enabled && wanted("twitter") {
		publishers = append(publishers,
			twitter.NewClient(cfg.Twitter, logger.With("component", "twitter")))
	}

	if len(publishers) == 0 {
		return nil, fmt.Errorf("no publishers match the requested platforms %v", only)
	}
	return publishers, nil
}
