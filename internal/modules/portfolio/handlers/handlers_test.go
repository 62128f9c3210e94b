package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	testutil "github.com/aristath/stockfolio/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router   *chi.Mux
	provider *testutil.MockPriceProvider
	repo     *testutil.MockHoldingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := testutil.NewMockPriceProvider()
	repo := testutil.NewMockHoldingRepository()
	svc := portfolio.NewService(provider, repo, portfolio.Config{Location: time.UTC}, zerolog.Nop())

	router := chi.NewRouter()
	router.Use(auth.RequireUser)
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(router)

	return &fixture{router: router, provider: provider, repo: repo}
}

func (f *fixture) get(path string, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(auth.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRoutes(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/portfolio/returns", "/portfolio/table"} {
		t.Run(path, func(t *testing.T) {
			rec := f.get(path, "1")
			assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s should be registered", path)
		})
	}
}

func TestHandleGetReturns(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.repo.SetHoldings(7, []domain.Holding{testutil.NewHolding("X", "10", "100", now.AddDate(0, 0, -60))})
	f.provider.SetHistory("X", testutil.DailySeries(now.AddDate(0, 0, -10), "90", "100", "120"))

	rec := f.get("/portfolio/returns?range=1M", "7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Data portfolio.ReturnsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.Range1M, body.Data.Range)
	assert.Equal(t, 1, body.Data.HoldingsCount)
	require.Len(t, body.Data.Points, 3)
	assert.Equal(t, "33.33", body.Data.Points[2].ReturnPercent.String())
}

func TestHandleGetReturns_DefaultsToOneMonth(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/portfolio/returns", "7")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data portfolio.ReturnsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.Range1M, body.Data.Range)
	assert.Empty(t, body.Data.Points)
	assert.Equal(t, 0, body.Data.HoldingsCount)
}

func TestHandleGetReturns_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		user       string
		repoErr    error
		wantStatus int
		wantKind   domain.ErrorKind
	}{
		{name: "invalid range", path: "/portfolio/returns?range=5Y", user: "1", wantStatus: http.StatusBadRequest, wantKind: domain.KindInvalid},
		{name: "missing user", path: "/portfolio/returns", wantStatus: http.StatusUnauthorized},
		{name: "repository failure", path: "/portfolio/returns", user: "1", repoErr: errors.New("disk gone"), wantStatus: http.StatusInternalServerError, wantKind: domain.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.repoErr != nil {
				f.repo.SetError(tt.repoErr)
			}

			rec := f.get(tt.path, tt.user)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.wantKind != "" {
				assert.Equal(t, string(tt.wantKind), body["kind"])
				assert.Equal(t, false, body["retryable"])
			}
		})
	}
}

func TestHandleGetTable(t *testing.T) {
	f := newFixture(t)
	f.repo.SetHoldings(3, []domain.Holding{
		testutil.NewHolding("AAPL", "2", "100", time.Now().AddDate(-1, 0, 0)),
		testutil.NewHolding("GONE", "1", "50", time.Now().AddDate(-1, 0, 0)),
	})
	f.provider.SetInfo(testutil.NewCurrentInfo("AAPL", "150", "140"))

	rec := f.get("/portfolio/table", "3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data portfolio.PortfolioTable `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Rows, 2)

	assert.Equal(t, "AAPL", body.Data.Rows[0].Ticker)
	assert.True(t, body.Data.Rows[0].Available)
	assert.False(t, body.Data.Rows[1].Available)
	assert.NotEmpty(t, body.Data.Rows[1].Error)

	assert.Equal(t, "300", body.Data.Totals.TotalValue.String())
	assert.Equal(t, "50", body.Data.Totals.TotalGainLossPercent.String())
}
