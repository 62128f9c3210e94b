package market

import (
	"encoding/json"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Figure is an optional number rendered as "N/A" when missing
type Figure decimal.NullDecimal

// MarshalJSON renders missing figures as "N/A"
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return json.Marshal(domain.NotAvailable)
	}
	return f.Decimal.MarshalJSON()
}

// Rounded returns the figure rounded to 2dp
func (f Figure) Rounded() Figure {
	if !f.Valid {
		return f
	}
	return Figure{Decimal: f.Decimal.Round(2), Valid: true}
}

// SP500Stock is an index member with its latest price snapshot.
// Price fields are null when the snapshot could not be fetched.
type SP500Stock struct {
	domain.Constituent
	MarketCap     decimal.NullDecimal `json:"market_cap"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	PreviousClose decimal.NullDecimal `json:"previous_close"`
	Open          decimal.NullDecimal `json:"open"`
	High          decimal.NullDecimal `json:"high"`
	Low           decimal.NullDecimal `json:"low"`
	ChangePercent decimal.Decimal     `json:"change_percent"`
}

// Chart is a single stock's closing prices over a range
type Chart struct {
	Ticker string            `json:"ticker"`
	Range  domain.Range      `json:"range"`
	Labels []string          `json:"labels"`
	Prices []decimal.Decimal `json:"prices"`
}

// Summary is the quote header shown for a single stock
type Summary struct {
	FetchedAt     time.Time `json:"fetched_at"`
	StockTicker   string    `json:"stock_ticker"`
	Name          string    `json:"name"`
	Exchange      string    `json:"exchange"`
	MarketStatus  string    `json:"market_status"`
	CurrentPrice  Figure    `json:"current_price"`
	PreviousClose Figure    `json:"previous_close"`
	DailyChange   Figure    `json:"daily_change"`
	PercentChange Figure    `json:"percent_change"`
	MarketCap     Figure    `json:"market_cap"`
	Volume        Figure    `json:"volume"`
	Open          Figure    `json:"open"`
	DayHigh       Figure    `json:"day_high"`
	DayLow        Figure    `json:"day_low"`
}
