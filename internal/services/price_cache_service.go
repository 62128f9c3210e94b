// Package services holds cross-module services shared by the portfolio and market modules.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
)

// PriceCacheService is a domain.PriceProvider that serves history and current
// info through the shared cache, falling back to a secondary provider when the
// primary one fails.
type PriceCacheService struct {
	primary  domain.PriceProvider
	fallback domain.PriceProvider // optional
	cache    *cache.Cache
	ttls     cache.TTLs
	log      zerolog.Logger
}

// NewPriceCacheService creates a new price cache service
func NewPriceCacheService(
	primary domain.PriceProvider,
	fallback domain.PriceProvider,
	c *cache.Cache,
	ttls cache.TTLs,
	log zerolog.Logger,
) *PriceCacheService {
	return &PriceCacheService{
		primary:  primary,
		fallback: fallback,
		cache:    c,
		ttls:     ttls.WithDefaults(),
		log:      log.With().Str("service", "price_cache").Logger(),
	}
}

// historySpans are the window lengths history is cached under, shortest first.
// A request is served from the shortest span reaching back to its start, so a
// ticker and interval only ever occupy a handful of keys, each overwritten on
// refresh.
var historySpans = []time.Duration{
	24 * time.Hour,
	7 * 24 * time.Hour,
	31 * 24 * time.Hour,
	92 * 24 * time.Hour,
	183 * 24 * time.Hour,
	366 * 24 * time.Hour,
	5 * 366 * 24 * time.Hour,
}

// historySpan picks the cached span for a request; zero means the full history.
// One bar of slack keeps a window that opens mid-bar in its natural span.
func historySpan(start, end time.Time, interval domain.Interval) time.Duration {
	if start.IsZero() {
		return 0
	}
	need := end.Sub(start) - interval.Step()
	for _, span := range historySpans {
		if need <= span {
			return span
		}
	}
	return 0
}

// HistoryKey is the cache key for a ticker's history at interval reaching span back
func HistoryKey(ticker string, interval domain.Interval, span time.Duration) string {
	label := "max"
	if span > 0 {
		label = fmt.Sprintf("%dd", int64(span/(24*time.Hour)))
	}
	return fmt.Sprintf("history:%s:%s:%s", strings.ToUpper(ticker), interval, label)
}

// InfoKey is the cache key for a ticker's current info
func InfoKey(ticker string) string {
	return "info:" + strings.ToUpper(ticker)
}

// historyWindow is a cached history fetch and the first bar start it covers
type historyWindow struct {
	From    time.Time // zero when the full history was fetched
	Samples []domain.PriceSample
}

func (w historyWindow) covers(barStart time.Time) bool {
	return w.From.IsZero() || !barStart.Before(w.From)
}

// History returns the bars overlapping [start, end]. Requests are keyed by
// ticker, interval and span rather than by their exact window, so repeated
// requests share an entry for the whole TTL and a failed refresh falls back to
// the last fetch. An entry that does not reach back to start is refreshed.
func (s *PriceCacheService) History(ctx context.Context, ticker string, start, end time.Time, interval domain.Interval) ([]domain.PriceSample, error) {
	ticker = strings.ToUpper(ticker)

	span := historySpan(start, end, interval)
	key := HistoryKey(ticker, interval, span)

	var from time.Time
	if span > 0 {
		from = interval.Truncate(end.Add(-span - interval.Step()))
		if v, _, ok := s.cache.Peek(key); ok {
			if w, ok := v.(historyWindow); ok && !w.covers(interval.Truncate(start)) {
				s.cache.Invalidate(key)
			}
		}
	}
	to := interval.Next(end)

	window, err := cache.Get(ctx, s.cache, key, s.ttls.History, func(ctx context.Context) (historyWindow, error) {
		samples, err := s.fetchHistory(ctx, ticker, from, to, interval)
		if err != nil {
			return historyWindow{}, err
		}
		return historyWindow{From: from, Samples: samples}, nil
	})
	if err != nil {
		return nil, err
	}

	return domain.TrimToBars(window.Samples, start, end, interval), nil
}

func (s *PriceCacheService) fetchHistory(ctx context.Context, ticker string, start, end time.Time, interval domain.Interval) ([]domain.PriceSample, error) {
	samples, err := s.primary.History(ctx, ticker, start, end, interval)
	if err == nil {
		s.log.Debug().
			Str("ticker", ticker).
			Str("interval", string(interval)).
			Int("samples", len(samples)).
			Msg("Fetched price history")
		return samples, nil
	}

	if s.fallback == nil {
		return nil, err
	}

	s.log.Warn().
		Err(err).
		Str("ticker", ticker).
		Str("kind", string(domain.ClassifyError(err))).
		Msg("Primary history fetch failed, trying fallback provider")

	samples, fbErr := s.fallback.History(ctx, ticker, start, end, interval)
	if fbErr != nil {
		// surface the primary failure, it carries the more useful classification
		return nil, err
	}
	return samples, nil
}

// CurrentInfo returns the cached snapshot for ticker
func (s *PriceCacheService) CurrentInfo(ctx context.Context, ticker string) (*domain.CurrentInfo, error) {
	ticker = strings.ToUpper(ticker)

	return cache.Get(ctx, s.cache, InfoKey(ticker), s.ttls.Snapshot, func(ctx context.Context) (*domain.CurrentInfo, error) {
		info, err := s.primary.CurrentInfo(ctx, ticker)
		if err == nil {
			return info, nil
		}
		if s.fallback == nil {
			return nil, err
		}

		s.log.Warn().
			Err(err).
			Str("ticker", ticker).
			Msg("Primary quote fetch failed, trying fallback provider")

		info, fbErr := s.fallback.CurrentInfo(ctx, ticker)
		if fbErr != nil {
			return nil, err
		}
		return info, nil
	})
}
