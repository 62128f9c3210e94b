package apininjas

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

func TestSP500Constituents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sp500", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`[
			{"ticker":"AAPL","company_name":"Apple Inc.","sector":"Information Technology"},
			{"ticker":"GOOG","company_name":"Alphabet Inc. Class C","sector":"Communication Services"},
			{"ticker":"BRK.B","company_name":"Berkshire Hathaway","sector":"Financials"},
			{"ticker":"MSFT","company_name":"Microsoft","sector":"Information Technology"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second, zerolog.Nop())
	got, err := client.SP500Constituents(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, domain.Constituent{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Information Technology"}, got[0])
	assert.Equal(t, "MSFT", got[1].Ticker)
}

func TestSP500ConstituentsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad", time.Second, zerolog.Nop())
	_, err := client.SP500Constituents(context.Background())
	require.Error(t, err)

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, domain.KindHTTP, pe.Kind)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.False(t, pe.Retryable())
}

func TestSP500ConstituentsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"unexpected"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", time.Second, zerolog.Nop())
	_, err := client.SP500Constituents(context.Background())
	assert.Equal(t, domain.KindMalformed, domain.ClassifyError(err))
}
