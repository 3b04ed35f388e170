// Package app wires configuration, store, AI backends and the pipeline
// into one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danibustillo97/rpa-news/internal/ai"
	"github.com/danibustillo97/rpa-news/internal/config"
	"github.com/danibustillo97/rpa-news/internal/dedup"
	"github.com/danibustillo97/rpa-news/internal/enrich"
	"github.com/danibustillo97/rpa-news/internal/feed"
	"github.com/danibustillo97/rpa-news/internal/logger"
	"github.com/danibustillo97/rpa-news/internal/metrics"
	"github.com/danibustillo97/rpa-news/internal/notify"
	"github.com/danibustillo97/rpa-news/internal/publish"
	"github.com/danibustillo97/rpa-news/internal/retry"
	"github.com/danibustillo97/rpa-news/internal/storage"
)

// Run executes one complete discovery-to-publication run. A run that
// publishes zero articles is still a successful run; only startup failures
// and a store that keeps rejecting inserts are errors.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	sources, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()

	gen, err := ai.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("text generator: %w", err)
	}
	if closer, ok := gen.(interface{ Close() }); ok {
		defer closer.Close()
	}

	start := time.Now()

	crawler := feed.NewCrawler(cfg.FetchTimeout, cfg.FetchConcurrency, cfg.UserAgent)
	candidates := crawler.Discover(ctx, sources.Sources)
	logger.Info("discovery finished", "sources", len(sources.Sources), "candidates", len(candidates))

	budget := ai.NewBudget(cfg.MaxRewriteCalls, cfg.MaxGenerateCalls, cfg.MaxAICalls)
	images := enrich.NewImageResolver(cfg.FetchTimeout, cfg.UserAgent, sources.ImageBlocklist)
	enricher := enrich.New(gen, budget, images)
	index := dedup.NewIndex(store)

	scheduler := publish.New(store, index, enricher, sources.Vocab(), publish.Options{
		Quota:          cfg.RunQuota,
		Delay:          cfg.PublishDelay,
		IncludeUndated: cfg.IncludeUndated,
		Retry: retry.Config{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
	})

	published, err := scheduler.Run(ctx, candidates)
	duration := time.Since(start)

	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("run: %w", err)
	}

	metrics.Global.SetLastRun(duration)
	logger.Info("run completed", "published", published, "duration", duration, "ai_usage", budget.Stats())

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		report := fmt.Sprintf("<b>rpa-news run</b>\nPublished: %d\nCandidates: %d\nDuration: %s",
			published, len(candidates), duration.Round(time.Second))
		if err := notify.SendRunReport(cfg.TelegramToken, cfg.TelegramChatID, report); err != nil {
			logger.Warn("run report not delivered", "error", err)
		}
	}

	return err
}
