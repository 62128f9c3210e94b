package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

const nativeProviderName = "yahoo-native"

// periods are the lookbacks go-yfinance accepts, shortest first
var periods = []struct {
	name string
	span time.Duration
}{
	{"1d", 24 * time.Hour},
	{"5d", 5 * 24 * time.Hour},
	{"1mo", 31 * 24 * time.Hour},
	{"3mo", 92 * 24 * time.Hour},
	{"6mo", 183 * 24 * time.Hour},
	{"1y", 366 * 24 * time.Hour},
	{"2y", 2 * 366 * 24 * time.Hour},
	{"5y", 5 * 366 * 24 * time.Hour},
	{"10y", 10 * 366 * 24 * time.Hour},
}

// NativeClient implements domain.PriceProvider using the go-yfinance library
type NativeClient struct {
	now func() time.Time
	log zerolog.Logger
}

// NewNativeClient creates a new native Yahoo Finance client
func NewNativeClient(log zerolog.Logger) *NativeClient {
	return &NativeClient{
		now: time.Now,
		log: log.With().Str("client", "yahoo-native").Logger(),
	}
}

// periodFor picks the smallest period reaching back to start
func periodFor(start, now time.Time) string {
	if start.IsZero() {
		return "max"
	}
	span := now.Sub(start)
	for _, p := range periods {
		if span <= p.span {
			return p.name
		}
	}
	return "max"
}

// History fetches bars for the period covering start and keeps those overlapping [start, end]
func (c *NativeClient) History(ctx context.Context, ticker string, start, end time.Time, interval domain.Interval) ([]domain.PriceSample, error) {
	symbol := utils.NormalizeTicker(ticker)
	period := periodFor(start, c.now())

	bars, err := runBlocking(ctx, func() ([]models.Bar, error) {
		t, err := newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer t.Close()

		return t.History(models.HistoryParams{
			Period:     period,
			Interval:   string(interval),
			AutoAdjust: true,
		})
	})
	if err != nil {
		return nil, domain.NewProviderError(nativeProviderName, "history", err)
	}

	samples := make([]domain.PriceSample, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		samples = append(samples, domain.PriceSample{
			Timestamp: bar.Date.UTC(),
			Close:     decimal.NewFromFloat(bar.Close),
		})
	}

	c.log.Debug().Str("ticker", symbol).Str("period", period).Int("samples", len(samples)).Msg("Fetched history")
	return domain.TrimToBars(samples, start, end, interval), nil
}

// CurrentInfo reads the ticker's info, falling back to the quote for the live price
func (c *NativeClient) CurrentInfo(ctx context.Context, ticker string) (*domain.CurrentInfo, error) {
	symbol := utils.NormalizeTicker(ticker)

	info, err := runBlocking(ctx, func() (*domain.CurrentInfo, error) {
		t, err := newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer t.Close()

		raw, err := t.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get info: %w", err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTickerNotFound, symbol)
		}

		name := raw.LongName
		if name == "" {
			name = raw.ShortName
		}
		out := &domain.CurrentInfo{
			FetchedAt:     c.now(),
			Ticker:        symbol,
			Name:          name,
			Exchange:      raw.Exchange,
			CurrentPrice:  fromNumber(raw.CurrentPrice),
			PreviousClose: fromNumber(raw.RegularMarketPreviousClose),
			MarketCap:     fromNumber(raw.MarketCap),
		}

		if !out.CurrentPrice.Valid {
			if quote, qerr := t.Quote(); qerr == nil && quote != nil {
				out.CurrentPrice = fromNumber(quote.RegularMarketPrice)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, domain.NewProviderError(nativeProviderName, "info", err)
	}
	return info, nil
}

func newTicker(symbol string) (*ticker.Ticker, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	return t, nil
}

// runBlocking runs a library call that takes no context and stops waiting
// for it when ctx is done. The call itself finishes in the background.
func runBlocking[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// fromNumber converts library values where zero means "not supplied"
func fromNumber[N ~int | ~int64 | ~float64](v N) decimal.NullDecimal {
	return domain.NullDecimalFromFloat(float64(v))
}

var _ domain.PriceProvider = (*NativeClient)(nil)
