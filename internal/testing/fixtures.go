package testing

import (
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// NewHolding builds a holding from string amounts
func NewHolding(ticker, shares, buyPrice string, purchased time.Time) domain.Holding {
	return domain.Holding{
		Ticker:       ticker,
		Shares:       decimal.RequireFromString(shares),
		BuyPrice:     decimal.RequireFromString(buyPrice),
		PurchaseDate: purchased,
	}
}

// DailySeries builds one close per day starting at start
func DailySeries(start time.Time, closes ...string) []domain.PriceSample {
	return Series(start, 24*time.Hour, closes...)
}

// Series builds closes spaced step apart starting at start
func Series(start time.Time, step time.Duration, closes ...string) []domain.PriceSample {
	out := make([]domain.PriceSample, len(closes))
	for i, c := range closes {
		out[i] = domain.PriceSample{
			Timestamp: start.Add(time.Duration(i) * step),
			Close:     decimal.RequireFromString(c),
		}
	}
	return out
}

// NewCurrentInfo builds a snapshot with the given current price and previous close.
// Empty strings leave the field unavailable.
func NewCurrentInfo(ticker, current, previousClose string) *domain.CurrentInfo {
	info := &domain.CurrentInfo{Ticker: ticker, FetchedAt: time.Now()}
	if current != "" {
		info.CurrentPrice = domain.NullDecimal(decimal.RequireFromString(current))
	}
	if previousClose != "" {
		info.PreviousClose = domain.NullDecimal(decimal.RequireFromString(previousClose))
	}
	return info
}
