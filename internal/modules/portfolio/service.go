// Package portfolio computes portfolio return series and per-holding snapshots
// from a user's holdings and externally supplied prices.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds per-request provider fan-out when unset
const DefaultMaxConcurrency = 8

// Config holds engine settings
type Config struct {
	Location       *time.Location
	Alignment      Alignment
	MaxConcurrency int
}

// ExcludedHolding records a holding left out of the aggregate
type ExcludedHolding struct {
	Ticker string           `json:"ticker"`
	Reason string           `json:"reason"`
	Kind   domain.ErrorKind `json:"kind"`
}

// ReturnsResult is the portfolio return series for one range.
// HoldingsCount is the number of holdings that contributed data.
type ReturnsResult struct {
	Range         domain.Range            `json:"range"`
	Points        []domain.PortfolioPoint `json:"points"`
	Excluded      []ExcludedHolding       `json:"excluded"`
	HoldingsCount int                     `json:"holdings_count"`
}

// Service is the portfolio engine
type Service struct {
	prices     domain.PriceProvider
	repo       domain.HoldingRepository
	projector  *Projector
	aggregator *Aggregator
	now        func() time.Time
	log        zerolog.Logger
	cfg        Config
}

// NewService wires the engine components around a (normally cached) price provider
func NewService(prices domain.PriceProvider, repo domain.HoldingRepository, cfg Config, log zerolog.Logger) *Service {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Alignment == "" {
		cfg.Alignment = AlignByIndex
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		prices: prices,
		repo:   repo,
		projector: NewProjector(
			NewBaselineResolver(prices, log),
			NewSeriesFetcher(prices, log),
		),
		aggregator: NewAggregator(cfg.Location),
		now:        time.Now,
		log:        log.With().Str("service", "portfolio").Logger(),
		cfg:        cfg,
	}
}

// GetPortfolioReturns projects every holding concurrently and aggregates the
// ones with data. Holdings that are invalid, fail or have no data are logged
// and listed in Excluded; they never fail the whole request.
func (s *Service) GetPortfolioReturns(ctx context.Context, holdings []domain.Holding, rng domain.Range, now time.Time) (*ReturnsResult, error) {
	if !rng.IsPortfolio() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRange, rng)
	}

	result := &ReturnsResult{
		Range:    rng,
		Points:   []domain.PortfolioPoint{},
		Excluded: []ExcludedHolding{},
	}
	if len(holdings) == 0 {
		return result, nil
	}

	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("range", string(rng)).Logger()
	start := time.Now()

	projections := make([]Projection, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, h := range holdings {
		if err := h.Validate(now); err != nil {
			projections[i] = Projection{Ticker: h.Ticker, Err: err}
			continue
		}
		g.Go(func() error {
			projections[i] = s.projector.Project(gctx, h, rng, now)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portfolio returns: %w", err)
	}

	present := make([]domain.ProjectedHolding, 0, len(projections))
	for _, p := range projections {
		if p.Present() {
			present = append(present, *p.Holding)
			continue
		}
		kind := domain.ClassifyError(p.Err)
		log.Warn().
			Err(p.Err).
			Str("ticker", p.Ticker).
			Str("kind", string(kind)).
			Msg("Excluding holding from portfolio returns")
		result.Excluded = append(result.Excluded, ExcludedHolding{
			Ticker: p.Ticker,
			Reason: p.Err.Error(),
			Kind:   kind,
		})
	}

	result.Points = s.aggregator.Aggregate(present, rng, s.cfg.Alignment)
	result.HoldingsCount = len(present)

	log.Info().
		Int("holdings", len(holdings)).
		Int("with_data", len(present)).
		Int("points", len(result.Points)).
		Dur("duration", time.Since(start)).
		Msg("Computed portfolio returns")

	return result, nil
}

// ReturnsForUser loads the user's holdings and computes returns as of now
func (s *Service) ReturnsForUser(ctx context.Context, userID int64, rng domain.Range) (*ReturnsResult, error) {
	holdings, err := s.repo.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	return s.GetPortfolioReturns(ctx, holdings, rng, s.now())
}

// TableForUser loads the user's holdings and builds the snapshot table
func (s *Service) TableForUser(ctx context.Context, userID int64) (*PortfolioTable, error) {
	holdings, err := s.repo.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	return s.GetPortfolioTable(ctx, holdings)
}
