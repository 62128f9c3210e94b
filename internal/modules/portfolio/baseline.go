package portfolio

import (
	"context"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BaselineResolver picks the price a holding's return is measured from
type BaselineResolver struct {
	prices domain.PriceProvider
	log    zerolog.Logger
}

// NewBaselineResolver creates a resolver reading through prices
func NewBaselineResolver(prices domain.PriceProvider, log zerolog.Logger) *BaselineResolver {
	return &BaselineResolver{
		prices: prices,
		log:    log.With().Str("component", "baseline_resolver").Logger(),
	}
}

// ResolveBaseline returns the baseline for one holding and range.
//
// ALL, and any holding bought after the window opened, is measured from its
// purchase price. Otherwise the first close in [now-lookback, now] is used;
// for 1D the provider's previous close is preferred when the first intraday
// sample comes after the purchase. Empty history or a provider failure falls
// back to the purchase price. It never fails.
func (r *BaselineResolver) ResolveBaseline(
	ctx context.Context,
	ticker string,
	rng domain.Range,
	purchaseDate, now time.Time,
	purchasePrice decimal.Decimal,
) domain.Baseline {
	purchase := domain.Baseline{Price: purchasePrice, Date: purchaseDate}

	if rng == domain.RangeAll {
		return purchase
	}

	cutoff, ok := rng.Cutoff(now)
	if !ok || purchaseDate.After(cutoff) {
		return purchase
	}

	samples, err := r.prices.History(ctx, ticker, cutoff, now, rng.Interval())
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("ticker", ticker).
			Str("range", string(rng)).
			Msg("Baseline history unavailable, using purchase price")
		return purchase
	}
	if len(samples) == 0 {
		r.log.Debug().
			Str("ticker", ticker).
			Str("range", string(rng)).
			Msg("No history in window, using purchase price")
		return purchase
	}

	first := samples[0]
	if rng == domain.Range1D && first.Timestamp.After(purchaseDate) {
		if prev, ok := r.previousClose(ctx, ticker); ok {
			return domain.Baseline{Price: prev, Date: first.Timestamp}
		}
	}

	return domain.Baseline{Price: first.Close, Date: first.Timestamp}
}

func (r *BaselineResolver) previousClose(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	info, err := r.prices.CurrentInfo(ctx, ticker)
	if err != nil {
		r.log.Debug().Err(err).Str("ticker", ticker).Msg("Previous close unavailable")
		return decimal.Zero, false
	}
	if !info.PreviousClose.Valid || !info.PreviousClose.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return info.PreviousClose.Decimal, true
}
