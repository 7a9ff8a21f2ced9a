// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/insights"
	"github.com/aristath/folio/internal/modules/quotes"
	"github.com/aristath/folio/internal/modules/rebalancing"
	"github.com/aristath/folio/internal/reliability"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the server and the CLI.
type Container struct {
	// Databases
	DB *database.DB // Holdings store (SQLite, WAL)

	// Infrastructure
	EventBus *events.Bus

	// Clients - External API integrations
	YahooClient *yahoo.Client           // Quote source
	Generator   insights.Generator      // nil when no Gemini key is configured
	BackupStore reliability.ObjectStore // nil when backups are disabled

	// Repositories - Data access layer
	HoldingsRepo *holdings.Repository

	// Services - Business logic layer
	QuoteCache         *quotes.Cache
	PriceFetcher       *quotes.Fetcher
	HoldingsService    *holdings.Service
	InsightsService    *insights.Service
	RebalancingService *rebalancing.Service
	BackupService      *reliability.BackupService // nil when backups are disabled
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
