// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived dependency of the application and is
// passed to the HTTP server and the scheduler.
package di

import (
	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/clients/apininjas"
	"github.com/aristath/stockfolio/internal/clients/massive"
	"github.com/aristath/stockfolio/internal/clients/yahoo"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/reliability"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/aristath/stockfolio/internal/services"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	HoldingsDB *database.DB // Per-user holdings, read by the portfolio engine

	// Shared TTL cache for reference lists, snapshots and history windows
	Cache *cache.Cache

	// Clients - External API integrations
	YahooClient   *yahoo.Client       // JSON chart/quote endpoints
	YahooNative   *yahoo.NativeClient // go-yfinance backed provider
	NinjasClient  *apininjas.Client   // S&P 500 constituents
	MassiveClient *massive.Client     // Exchange ticker directories

	// Repositories
	HoldingRepo *portfolio.HoldingRepository

	// Services
	PriceService     *services.PriceCacheService
	PortfolioService *portfolio.Service
	MarketService    *market.Service
	BackupService    *reliability.BackupService // nil when backups are not configured

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs so they can be triggered manually
type JobInstances struct {
	RefreshReferenceData  scheduler.Job
	CheckHoldingsDatabase scheduler.Job
	BackupHoldings        scheduler.Job // nil when backups are not configured
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.HoldingsDB == nil {
		return nil
	}
	return c.HoldingsDB.Close()
}
