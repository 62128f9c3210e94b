package massive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeTickersPaginates(t *testing.T) {
	var calls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "key", r.URL.Query().Get("apiKey"))

		switch n {
		case 1:
			assert.Equal(t, "/reference/tickers", r.URL.Path)
			assert.Equal(t, "XNYS", r.URL.Query().Get("exchange"))
			assert.Equal(t, "stocks", r.URL.Query().Get("market"))
			assert.Equal(t, "1000", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"results":[{"ticker":"A","name":"Agilent"},{"ticker":"AA","name":"Alcoa"}],
				"next_url":"` + srv.URL + `/reference/tickers?cursor=abc"}`))
		default:
			assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
			_, _ = w.Write([]byte(`{"results":[{"ticker":"ZTS","name":"Zoetis"}]}`))
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key", PageDelay: time.Millisecond}, zerolog.Nop())
	got, err := client.ExchangeTickers(context.Background(), "NYSE")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, got, 3)
	assert.Equal(t, domain.ListedTicker{Ticker: "ZTS", Name: "Zoetis", Exchange: "NYSE"}, got[2])
}

func TestExchangeTickersNasdaqCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "XNAS", r.URL.Query().Get("exchange"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	got, err := client.ExchangeTickers(context.Background(), "nasdaq")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExchangeTickersUnknownExchange(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	_, err := client.ExchangeTickers(context.Background(), "lse")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalid, domain.ClassifyError(err))
	assert.Equal(t, http.StatusBadRequest, domain.HTTPStatus(err))
}

func TestExchangeTickersHTTPErrorMidway(t *testing.T) {
	var calls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"results":[{"ticker":"A"}],"next_url":"` + srv.URL + `/reference/tickers?cursor=x"}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	_, err := client.ExchangeTickers(context.Background(), "nyse")

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.True(t, pe.Retryable())
}

func TestExchangeTickersCancelledDuringDelay(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[],"next_url":"` + srv.URL + `/reference/tickers?cursor=x"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	client := NewClient(Config{BaseURL: srv.URL, PageDelay: time.Hour}, zerolog.Nop())
	_, err := client.ExchangeTickers(ctx, "nyse")
	assert.Equal(t, domain.KindTimeout, domain.ClassifyError(err))
}

func TestWithAPIKey(t *testing.T) {
	assert.Equal(t, "https://x/y?cursor=1&apiKey=k", withAPIKey("https://x/y?cursor=1", "k"))
	assert.Equal(t, "https://x/y?apiKey=k", withAPIKey("https://x/y", "k"))
}
