// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is rendered in place of provider fields that were not supplied.
const NotAvailable = "N/A"

// Holding is a user's position in one ticker, as read from the holdings store.
// Holdings are immutable from the engine's point of view.
type Holding struct {
	PurchaseDate time.Time       `json:"purchase_date"`
	Ticker       string          `json:"ticker"`
	Shares       decimal.Decimal `json:"shares"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
}

// Validate checks the holding invariants: non-negative shares and buy price,
// and a purchase date that is not after now.
func (h Holding) Validate(now time.Time) error {
	switch {
	case h.Shares.IsNegative():
		return fmt.Errorf("%w: %s has negative shares %s", ErrInvalidHolding, h.Ticker, h.Shares)
	case h.BuyPrice.IsNegative():
		return fmt.Errorf("%w: %s has negative buy price %s", ErrInvalidHolding, h.Ticker, h.BuyPrice)
	case h.PurchaseDate.After(now):
		return fmt.Errorf("%w: %s purchased in the future (%s)", ErrInvalidHolding, h.Ticker, h.PurchaseDate.Format(time.RFC3339))
	}
	return nil
}

// CostBasis returns shares × buy price
func (h Holding) CostBasis() decimal.Decimal {
	return h.Shares.Mul(h.BuyPrice)
}

// PriceSample is a single closing price observation
type PriceSample struct {
	Timestamp time.Time       `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
}

// Baseline is the reference point a holding's return is measured from.
// Recomputed per request, never persisted.
type Baseline struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// ProjectedHolding is a holding's price series converted to position values.
// PositionValues[i] is the position value at Timestamps[i].
type ProjectedHolding struct {
	Ticker         string            `json:"ticker"`
	Timestamps     []time.Time       `json:"timestamps"`
	PositionValues []decimal.Decimal `json:"position_values"`
	Shares         decimal.Decimal   `json:"shares"`
	BaselinePrice  decimal.Decimal   `json:"baseline_price"`
	BaselineValue  decimal.Decimal   `json:"baseline_value"`
	BaselineDate   time.Time         `json:"baseline_date"`
}

// Len returns the number of samples in the projection
func (p ProjectedHolding) Len() int {
	return len(p.PositionValues)
}

// PortfolioPoint is one point of the aggregated portfolio return curve
type PortfolioPoint struct {
	Timestamp     time.Time       `json:"-"`
	Label         string          `json:"date"`
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// CurrentInfo is a best-effort snapshot of a ticker's live market data.
// Fields the provider did not supply are left invalid.
type CurrentInfo struct {
	FetchedAt     time.Time           `json:"fetched_at"`
	Ticker        string              `json:"ticker"`
	Name          string              `json:"name,omitempty"`
	Exchange      string              `json:"exchange,omitempty"`
	MarketState   string              `json:"market_state,omitempty"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	PreviousClose decimal.NullDecimal `json:"previous_close"`
	MarketCap     decimal.NullDecimal `json:"market_cap"`
	Open          decimal.NullDecimal `json:"open"`
	DayHigh       decimal.NullDecimal `json:"day_high"`
	DayLow        decimal.NullDecimal `json:"day_low"`
	Volume        decimal.NullDecimal `json:"volume"`
}

// ChangePercent returns today's change against the previous close, rounded to 2dp.
// The second return value is false when either price is missing or the previous close is zero.
func (c *CurrentInfo) ChangePercent() (decimal.Decimal, bool) {
	if c == nil || !c.CurrentPrice.Valid || !c.PreviousClose.Valid || c.PreviousClose.Decimal.IsZero() {
		return decimal.Zero, false
	}
	change := c.CurrentPrice.Decimal.Sub(c.PreviousClose.Decimal)
	return change.Div(c.PreviousClose.Decimal).Mul(decimal.NewFromInt(100)).Round(2), true
}

// Constituent is an index member as returned by the constituent list provider
type Constituent struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// ListedTicker is an entry of an exchange ticker directory
type ListedTicker struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// NullDecimal wraps a value as a valid decimal.NullDecimal
func NullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NullDecimalFromFloat returns an invalid NullDecimal for non-positive values,
// which providers use to mean "not supplied".
func NullDecimalFromFloat(f float64) decimal.NullDecimal {
	if f <= 0 {
		return decimal.NullDecimal{}
	}
	return NullDecimal(decimal.NewFromFloat(f))
}

// NormalizeSamples keeps samples inside [start, end], sorted ascending with
// duplicate timestamps removed (the later observation wins).
// A zero start or end leaves that side unbounded.
func NormalizeSamples(samples []PriceSample, start, end time.Time) []PriceSample {
	out := make([]PriceSample, 0, len(samples))
	for _, s := range samples {
		if !start.IsZero() && s.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && s.Timestamp.After(end) {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:0]
	for _, s := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(s.Timestamp) {
			deduped[n-1] = s
			continue
		}
		deduped = append(deduped, s)
	}
	return deduped
}

// TrimToBars keeps the bars whose interval step overlaps [start, end].
// Providers stamp a bar at the start of its step, so the bar containing start
// is kept even though its timestamp is earlier.
func TrimToBars(samples []PriceSample, start, end time.Time, interval Interval) []PriceSample {
	if !start.IsZero() {
		start = interval.Truncate(start)
	}
	return NormalizeSamples(samples, start, end)
}
