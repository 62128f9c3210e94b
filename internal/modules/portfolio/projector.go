package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Projection is the outcome of projecting one holding.
// Either Holding is set, or Err says why the holding is absent.
type Projection struct {
	Err     error
	Holding *domain.ProjectedHolding
	Ticker  string
}

// Present reports whether the holding produced a series
func (p Projection) Present() bool {
	return p.Holding != nil
}

// Projector converts a holding's price series into position values
type Projector struct {
	baselines *BaselineResolver
	series    *SeriesFetcher
}

// NewProjector creates a projector
func NewProjector(baselines *BaselineResolver, series *SeriesFetcher) *Projector {
	return &Projector{baselines: baselines, series: series}
}

// Project resolves the holding's baseline and fetches its series over [baseline date, now].
// An empty series yields an absent projection wrapping domain.ErrNoDataForRange.
func (p *Projector) Project(ctx context.Context, h domain.Holding, rng domain.Range, now time.Time) Projection {
	baseline := p.baselines.ResolveBaseline(ctx, h.Ticker, rng, h.PurchaseDate, now, h.BuyPrice)

	samples, err := p.series.FetchSeries(ctx, h.Ticker, baseline.Date, now, rng)
	if err != nil {
		return Projection{Ticker: h.Ticker, Err: err}
	}
	if len(samples) == 0 {
		return Projection{Ticker: h.Ticker, Err: fmt.Errorf("%s %s: %w", h.Ticker, rng, domain.ErrNoDataForRange)}
	}

	projected := &domain.ProjectedHolding{
		Ticker:         h.Ticker,
		Shares:         h.Shares,
		BaselinePrice:  baseline.Price,
		BaselineDate:   baseline.Date,
		BaselineValue:  baseline.Price.Mul(h.Shares),
		Timestamps:     make([]time.Time, len(samples)),
		PositionValues: make([]decimal.Decimal, len(samples)),
	}
	for i, s := range samples {
		projected.Timestamps[i] = s.Timestamp
		projected.PositionValues[i] = s.Close.Mul(h.Shares)
	}

	return Projection{Ticker: h.Ticker, Holding: projected}
}
