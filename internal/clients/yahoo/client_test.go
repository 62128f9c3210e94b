package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(zerolog.Nop(), WithBaseURL(srv.URL), WithRateLimit(1000), WithTimeout(2*time.Second))
}

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL"},
      "timestamp": [1717430400, 1717516800, 1717603200, 1717689600],
      "indicators": {"quote": [{"close": [190.5, null, 195.25, 196.1]}]}
    }],
    "error": null
  }
}`

func TestClient_History(t *testing.T) {
	var gotPath, gotInterval, gotUA string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	})

	start := time.Unix(1717430400, 0)
	end := time.Unix(1717603200, 0)
	samples, err := client.History(context.Background(), "aapl", start, end, domain.Interval1d)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.Contains(t, gotUA, "Mozilla")

	// the null close is skipped and the last bar lies after end
	require.Len(t, samples, 2)
	assert.Equal(t, "190.5", samples[0].Close.String())
	assert.Equal(t, "195.25", samples[1].Close.String())
	assert.Equal(t, time.UTC, samples[0].Timestamp.Location())
}

func TestClient_HistoryKeepsBarContainingStart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})

	// bought at 18:00 on Jun 3, after the daily bar stamped 16:00 that day
	start := time.Unix(1717430400, 0).Add(2 * time.Hour)
	end := time.Unix(1717603200, 0)
	samples, err := client.History(context.Background(), "AAPL", start, end, domain.Interval1d)
	require.NoError(t, err)

	require.Len(t, samples, 2)
	assert.Equal(t, "190.5", samples[0].Close.String())
}

func TestClient_HistoryFullRangeAsksForMax(t *testing.T) {
	var gotRange, gotPeriod1 string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("range")
		gotPeriod1 = r.URL.Query().Get("period1")
		_, _ = w.Write([]byte(chartBody))
	})

	samples, err := client.History(context.Background(), "AAPL", time.Time{}, time.Unix(1717700000, 0), domain.Interval1mo)
	require.NoError(t, err)

	assert.Equal(t, "max", gotRange)
	assert.Empty(t, gotPeriod1)
	assert.Len(t, samples, 3)
}

func TestClient_HistoryEmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	samples, err := client.History(context.Background(), "AAPL", time.Now().Add(-time.Hour), time.Now(), domain.Interval5m)
	require.NoError(t, err)
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  domain.ErrorKind
		wantRetry bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantKind: domain.KindHTTP, wantRetry: true},
		{name: "bad gateway", status: http.StatusBadGateway, body: "", wantKind: domain.KindHTTP, wantRetry: true},
		{name: "forbidden", status: http.StatusForbidden, body: "no", wantKind: domain.KindHTTP},
		{name: "unknown symbol", status: http.StatusNotFound, body: `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, wantKind: domain.KindNotFound},
		{name: "garbage", status: http.StatusOK, body: "<html>", wantKind: domain.KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.History(context.Background(), "X", time.Now().AddDate(0, 0, -5), time.Now(), domain.Interval1d)
			require.Error(t, err)

			var pe *domain.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, "yahoo", pe.Provider)
			assert.Equal(t, tt.wantRetry, domain.IsRetryable(err))
			if tt.wantKind == domain.KindHTTP {
				assert.Equal(t, tt.status, pe.Status)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.CurrentInfo(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.ClassifyError(err))
	assert.True(t, domain.IsRetryable(err))
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(zerolog.Nop(), WithBaseURL(url))
	_, err := client.CurrentInfo(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnavailable, domain.ClassifyError(err))
}

func TestClient_CurrentInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{
			"symbol":"MSFT","shortName":"Microsoft","fullExchangeName":"NasdaqGS","marketState":"REGULAR",
			"regularMarketPrice":420.5,"regularMarketPreviousClose":415.0,"marketCap":3100000000000,
			"regularMarketOpen":0,"regularMarketDayHigh":421.9
		}],"error":null}}`))
	})

	info, err := client.CurrentInfo(context.Background(), "msft")
	require.NoError(t, err)

	assert.Equal(t, "MSFT", info.Ticker)
	assert.Equal(t, "Microsoft", info.Name)
	assert.Equal(t, "NasdaqGS", info.Exchange)
	assert.Equal(t, "REGULAR", info.MarketState)
	assert.Equal(t, "420.5", info.CurrentPrice.Decimal.String())
	assert.True(t, info.PreviousClose.Valid)
	assert.False(t, info.Open.Valid, "zero is treated as not supplied")
	assert.False(t, info.DayLow.Valid)

	pct, ok := info.ChangePercent()
	require.True(t, ok)
	assert.Equal(t, "1.33", pct.String())
}

func TestClient_CurrentInfoUnknownTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	})

	_, err := client.CurrentInfo(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTickerNotFound))
	assert.Equal(t, http.StatusNotFound, domain.HTTPStatus(err))
}
