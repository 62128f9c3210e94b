package di

import (
	"context"
	"fmt"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/clients/apininjas"
	"github.com/aristath/stockfolio/internal/clients/massive"
	"github.com/aristath/stockfolio/internal/clients/yahoo"
	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/reliability"
	"github.com/aristath/stockfolio/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients, the shared cache and the domain services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("failed to load market timezone: %w", err)
	}
	alignment, err := portfolio.ParseAlignment(cfg.PortfolioAlignment)
	if err != nil {
		return err
	}

	ttls := cache.TTLs{
		Reference: cfg.ReferenceTTL,
		Snapshot:  cfg.PriceTTL,
		History:   cfg.HistoryTTL,
	}.WithDefaults()

	container.Cache = cache.New(log, cache.WithRefreshTimeout(cfg.RequestTimeout))

	// Clients
	container.YahooClient = yahoo.NewClient(log,
		yahoo.WithBaseURL(cfg.YahooBaseURL),
		yahoo.WithRateLimit(cfg.YahooRateLimit),
		yahoo.WithTimeout(cfg.RequestTimeout),
	)
	container.YahooNative = yahoo.NewNativeClient(log)
	container.NinjasClient = apininjas.NewClient(cfg.NinjasBaseURL, cfg.APINinjasKey, cfg.RequestTimeout, log)
	container.MassiveClient = massive.NewClient(massive.Config{
		BaseURL:   cfg.MassiveBaseURL,
		APIKey:    cfg.MassiveAPIKey,
		Timeout:   cfg.RequestTimeout,
		PageDelay: cfg.MassivePageDelay,
	}, log)

	if cfg.APINinjasKey == "" {
		log.Warn().Msg("API_NINJAS_KEY not set, S&P 500 listing will fail")
	}
	if cfg.MassiveAPIKey == "" {
		log.Warn().Msg("MASSIVE_API_KEY not set, exchange ticker directories will fail")
	}

	// Price provider: the configured implementation first, the other as fallback
	var primary, fallback domain.PriceProvider = container.YahooClient, container.YahooNative
	if cfg.PriceProvider == config.ProviderNative {
		primary, fallback = container.YahooNative, container.YahooClient
	}
	container.PriceService = services.NewPriceCacheService(primary, fallback, container.Cache, ttls, log)

	// Repositories
	container.HoldingRepo = portfolio.NewHoldingRepository(container.HoldingsDB.Conn(), log)

	// Domain services
	container.PortfolioService = portfolio.NewService(container.PriceService, container.HoldingRepo, portfolio.Config{
		Location:       loc,
		Alignment:      alignment,
		MaxConcurrency: cfg.PortfolioMaxConcurrency,
	}, log)

	container.MarketService = market.NewService(
		container.NinjasClient,
		container.MassiveClient,
		container.PriceService,
		container.Cache,
		market.Config{
			Location:       loc,
			TTLs:           ttls,
			MaxConcurrency: cfg.PortfolioMaxConcurrency,
		},
		log,
	)

	if cfg.BackupEnabled() {
		store, err := reliability.NewS3Store(context.Background(), reliability.S3Config{
			Endpoint:        cfg.BackupEndpoint,
			Region:          cfg.BackupRegion,
			Bucket:          cfg.BackupBucket,
			AccessKeyID:     cfg.BackupAccessKey,
			SecretAccessKey: cfg.BackupSecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.HoldingsDB, store, cfg.DataDir, log)
	}

	log.Info().
		Str("price_provider", cfg.PriceProvider).
		Str("alignment", string(alignment)).
		Str("timezone", loc.String()).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")
	return nil
}
