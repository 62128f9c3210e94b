package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
)

// SeriesFetcher turns a ticker and window into a price series at the range's interval
type SeriesFetcher struct {
	prices domain.PriceProvider
	log    zerolog.Logger
}

// NewSeriesFetcher creates a fetcher reading through prices
func NewSeriesFetcher(prices domain.PriceProvider, log zerolog.Logger) *SeriesFetcher {
	return &SeriesFetcher{
		prices: prices,
		log:    log.With().Str("component", "series_fetcher").Logger(),
	}
}

// FetchSeries returns chronological samples for the bars overlapping [start, end],
// possibly empty. The bar containing start is included: a monthly bar stamped on
// the 1st still covers a purchase on the 10th.
func (f *SeriesFetcher) FetchSeries(ctx context.Context, ticker string, start, end time.Time, rng domain.Range) ([]domain.PriceSample, error) {
	interval := rng.Interval()
	if interval == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRange, rng)
	}

	from := start
	if !from.IsZero() {
		from = interval.Truncate(start)
	}
	samples, err := f.prices.History(ctx, ticker, from, end, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s series for %s: %w", rng, ticker, err)
	}

	samples = domain.TrimToBars(samples, start, end, interval)
	f.log.Debug().
		Str("ticker", ticker).
		Str("interval", string(interval)).
		Int("samples", len(samples)).
		Msg("Fetched series")
	return samples, nil
}
