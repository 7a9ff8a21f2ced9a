package di

import (
	"context"
	"fmt"

	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/insights"
	"github.com/aristath/folio/internal/modules/quotes"
	"github.com/aristath/folio/internal/modules/rebalancing"
	"github.com/aristath/folio/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services. Optional integrations
// (Gemini, S3 backups) stay nil when not configured.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.HoldingsRepo == nil {
		return fmt.Errorf("repositories are not initialized")
	}

	container.EventBus = events.NewBus(log)

	container.YahooClient = yahoo.NewClient(log,
		yahoo.WithBaseURL(cfg.Quotes.BaseURL),
		yahoo.WithExchangeSuffix(cfg.Quotes.ExchangeSuffix),
		yahoo.WithTimeout(cfg.Quotes.GetTimeout()),
		yahoo.WithRateLimit(cfg.Quotes.RateLimit),
	)

	container.QuoteCache = quotes.NewCache(cfg.Quotes.GetCacheTTL())
	container.PriceFetcher = quotes.NewFetcher(
		container.YahooClient,
		container.QuoteCache,
		log,
		quotes.WithConcurrency(cfg.Quotes.Concurrency),
	)

	container.HoldingsService = holdings.NewService(container.HoldingsRepo, log)

	if cfg.Gemini.APIKey != "" {
		generator, err := insights.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, log)
		if err != nil {
			return fmt.Errorf("failed to initialize insights generator: %w", err)
		}
		container.Generator = generator
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, AI insights and rebalance summaries disabled")
	}

	container.InsightsService = insights.NewService(container.HoldingsService, container.Generator, log)
	container.RebalancingService = rebalancing.NewService(container.HoldingsRepo, container.Generator, log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup store: %w", err)
		}
		container.BackupStore = store
		container.BackupService = reliability.NewBackupService(
			container.DB,
			store,
			container.EventBus,
			cfg.Backup.Prefix,
			cfg.Backup.Retention,
			log,
		)
	}

	log.Debug().Msg("Services initialized")
	return nil
}
