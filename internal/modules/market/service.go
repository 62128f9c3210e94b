// Package market serves reference and price data for individual stocks:
// the S&P 500 listing, exchange ticker directories, charts and quote summaries.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// ConstituentsKey caches the S&P 500 member list
	ConstituentsKey = "reference:sp500"

	DefaultExchange       = "nyse"
	defaultMaxConcurrency = 8
)

// TickersKey caches an exchange's ticker directory
func TickersKey(exchange string) string {
	return "reference:tickers:" + strings.ToLower(exchange)
}

// Config holds market service settings
type Config struct {
	Location       *time.Location
	TTLs           cache.TTLs
	MaxConcurrency int
}

// Service answers market data requests through the shared cache
type Service struct {
	constituents domain.ConstituentSource
	directory    domain.TickerDirectory
	prices       domain.PriceProvider
	cache        *cache.Cache
	cfg          Config
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new market service. prices is expected to be cached already.
func NewService(
	constituents domain.ConstituentSource,
	directory domain.TickerDirectory,
	prices domain.PriceProvider,
	c *cache.Cache,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	cfg.TTLs = cfg.TTLs.WithDefaults()

	return &Service{
		constituents: constituents,
		directory:    directory,
		prices:       prices,
		cache:        c,
		cfg:          cfg,
		now:          time.Now,
		log:          log.With().Str("service", "market").Logger(),
	}
}

// Constituents returns the cached S&P 500 member list
func (s *Service) Constituents(ctx context.Context) ([]domain.Constituent, error) {
	return cache.Get(ctx, s.cache, ConstituentsKey, s.cfg.TTLs.Reference, s.constituents.SP500Constituents)
}

// SP500 returns every constituent with its latest snapshot. Snapshots are
// fetched concurrently; a failed snapshot leaves that stock's prices null.
func (s *Service) SP500(ctx context.Context) ([]SP500Stock, error) {
	defer utils.OperationTimer("sp500_listing", s.log, 30*time.Second)()

	members, err := s.Constituents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load S&P 500 constituents: %w", err)
	}

	stocks := make([]SP500Stock, len(members))
	failed := make([]bool, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, m := range members {
		stocks[i].Constituent = m
		g.Go(func() error {
			info, err := s.prices.CurrentInfo(gctx, m.Ticker)
			if err != nil {
				failed[i] = true
				s.log.Debug().Err(err).Str("ticker", m.Ticker).Msg("Snapshot unavailable")
				return nil
			}
			fillSnapshot(&stocks[i], info)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sp500: %w", err)
	}

	missing := 0
	for _, f := range failed {
		if f {
			missing++
		}
	}
	if missing > 0 {
		s.log.Warn().Int("missing", missing).Int("total", len(members)).Msg("Some S&P 500 snapshots unavailable")
	}
	return stocks, nil
}

func fillSnapshot(stock *SP500Stock, info *domain.CurrentInfo) {
	stock.MarketCap = info.MarketCap
	stock.CurrentPrice = info.CurrentPrice
	if info.CurrentPrice.Valid {
		stock.CurrentPrice = domain.NullDecimal(info.CurrentPrice.Decimal.Round(2))
	}
	stock.PreviousClose = info.PreviousClose
	stock.Open = info.Open
	stock.High = info.DayHigh
	stock.Low = info.DayLow
	stock.ChangePercent, _ = info.ChangePercent()
}

// ExchangeTickers returns the cached ticker directory of exchange (default nyse)
func (s *Service) ExchangeTickers(ctx context.Context, exchange string) ([]domain.ListedTicker, error) {
	exchange = strings.ToLower(strings.TrimSpace(exchange))
	if exchange == "" {
		exchange = DefaultExchange
	}
	return cache.Get(ctx, s.cache, TickersKey(exchange), s.cfg.TTLs.Reference, func(ctx context.Context) ([]domain.ListedTicker, error) {
		return s.directory.ExchangeTickers(ctx, exchange)
	})
}

// Chart returns closes over rng, labelled in the market time zone and rounded to 2dp
func (s *Service) Chart(ctx context.Context, ticker string, rng domain.Range) (*Chart, error) {
	ticker = utils.NormalizeTicker(ticker)
	now := s.now()

	start, _ := rng.Cutoff(now)
	samples, err := s.prices.History(ctx, ticker, start, now, rng.Interval())
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("chart %s %s: %w", ticker, rng, domain.ErrNoDataForRange)
	}

	chart := &Chart{
		Ticker: ticker,
		Range:  rng,
		Labels: make([]string, len(samples)),
		Prices: make([]decimal.Decimal, len(samples)),
	}
	for i, sample := range samples {
		chart.Labels[i] = rng.Label(sample.Timestamp, s.cfg.Location)
		chart.Prices[i] = sample.Close.Round(2)
	}
	return chart, nil
}

// Summary returns the quote header for ticker with missing figures rendered "N/A"
func (s *Service) Summary(ctx context.Context, ticker string) (*Summary, error) {
	ticker = utils.NormalizeTicker(ticker)

	info, err := s.prices.CurrentInfo(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", ticker, err)
	}

	summary := &Summary{
		FetchedAt:     info.FetchedAt,
		StockTicker:   ticker,
		Name:          orNotAvailable(info.Name),
		Exchange:      orNotAvailable(info.Exchange),
		MarketStatus:  "Closed",
		CurrentPrice:  Figure(info.CurrentPrice).Rounded(),
		PreviousClose: Figure(info.PreviousClose).Rounded(),
		MarketCap:     Figure(info.MarketCap),
		Volume:        Figure(info.Volume),
		Open:          Figure(info.Open),
		DayHigh:       Figure(info.DayHigh),
		DayLow:        Figure(info.DayLow),
	}
	if info.MarketState == "REGULAR" {
		summary.MarketStatus = "Open"
	}
	if pct, ok := info.ChangePercent(); ok {
		change := info.CurrentPrice.Decimal.Sub(info.PreviousClose.Decimal).Round(2)
		summary.DailyChange = Figure(domain.NullDecimal(change))
		summary.PercentChange = Figure(domain.NullDecimal(pct))
	}
	return summary, nil
}

// RefreshReferenceData invalidates the reference lists and fetches them again.
// A list whose refresh fails keeps serving its previous value, so an error
// only comes back for lists that were never fetched.
func (s *Service) RefreshReferenceData(ctx context.Context, exchanges []string) error {
	s.cache.Invalidate(ConstituentsKey)
	var errs []error
	if _, err := s.Constituents(ctx); err != nil {
		errs = append(errs, err)
	}

	for _, ex := range exchanges {
		s.cache.Invalidate(TickersKey(ex))
		if _, err := s.ExchangeTickers(ctx, ex); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("reference refresh: %w", errors.Join(errs...))
	}
	return nil
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.NotAvailable
	}
	return s
}
