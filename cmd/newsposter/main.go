package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/app"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/config"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/domain"
	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/logging"
)

// Exit codes: 0 posted (or dry run), 1 no eligible candidate, 2 fatal.
const (
	exitOK          = 0
	exitNoCandidate = 1
	exitFatal       = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	dryRun := flag.Bool("test", false, "walk the pipeline without publishing or persisting")
	platforms := flag.String("platforms", "", "comma-separated platform subset (bluesky,twitter)")
	logLevel := flag.String("log-level", "", "override configured log level")
	flag.Parse()

	cfg := config.Load()
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{DryRun: *dryRun}
	if *platforms != "" {
		for _, p := range strings.Split(*platforms, ",") {
			opts.Platforms = append(opts.Platforms, strings.TrimSpace(p))
		}
	}

	application, err := app.New(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitFatal
	}
	defer application.Close()

	result, err := application.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyPool) {
			logger.Error("no candidates available", "error", err)
		} else {
			logger.Error("run failed", "error", err)
		}
		return exitFatal
	}

	if result.Status == domain.StatusNoEligibleCandidate {
		logger.Warn("every shortlisted candidate was rejected")
		return exitNoCandidate
	}
	return exitOK
}
