package domain

import (
	"context"
	"time"
)

// HoldingRepository provides read-only access to persisted holdings.
// The engine never mutates holdings; creation and deletion live elsewhere.
type HoldingRepository interface {
	// ListHoldings returns the user's holdings in no particular order.
	// A user with no holdings gets an empty slice, not an error.
	ListHoldings(ctx context.Context, userID int64) ([]Holding, error)
}

// PriceProvider supplies live snapshots and price history for a ticker
type PriceProvider interface {
	// CurrentInfo returns a best-effort snapshot. Missing fields are left invalid.
	CurrentInfo(ctx context.Context, ticker string) (*CurrentInfo, error)

	// History returns chronological closes of the bars overlapping [start, end]
	// at the given interval; a zero start means the full history.
	// An empty slice (not an error) is returned when the window has no data.
	History(ctx context.Context, ticker string, start, end time.Time, interval Interval) ([]PriceSample, error)
}

// ConstituentSource lists index members
type ConstituentSource interface {
	SP500Constituents(ctx context.Context) ([]Constituent, error)
}

// TickerDirectory lists the tickers traded on an exchange
type TickerDirectory interface {
	ExchangeTickers(ctx context.Context, exchange string) ([]ListedTicker, error)
}
