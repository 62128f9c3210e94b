// Package testing provides fakes and helpers shared by package tests.
package testing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
)

// MockPriceProvider is an in-memory domain.PriceProvider.
// History honours the [start, end] window like a real provider.
type MockPriceProvider struct {
	mu           sync.RWMutex
	history      map[string][]domain.PriceSample
	historyErr   map[string]error
	infos        map[string]*domain.CurrentInfo
	infoErr      map[string]error
	historyCalls map[string]int
	infoCalls    map[string]int
	delay        time.Duration
}

// NewMockPriceProvider creates an empty mock provider
func NewMockPriceProvider() *MockPriceProvider {
	return &MockPriceProvider{
		history:      make(map[string][]domain.PriceSample),
		historyErr:   make(map[string]error),
		infos:        make(map[string]*domain.CurrentInfo),
		infoErr:      make(map[string]error),
		historyCalls: make(map[string]int),
		infoCalls:    make(map[string]int),
	}
}

// SetHistory sets the full price history for a ticker
func (m *MockPriceProvider) SetHistory(ticker string, samples []domain.PriceSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[strings.ToUpper(ticker)] = samples
}

// SetHistoryError makes History fail for a ticker
func (m *MockPriceProvider) SetHistoryError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyErr[strings.ToUpper(ticker)] = err
}

// SetInfo sets the current info for a ticker
func (m *MockPriceProvider) SetInfo(info *domain.CurrentInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos[strings.ToUpper(info.Ticker)] = info
}

// SetInfoError makes CurrentInfo fail for a ticker
func (m *MockPriceProvider) SetInfoError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoErr[strings.ToUpper(ticker)] = err
}

// SetDelay makes every call block for d (or until ctx is done)
func (m *MockPriceProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// HistoryCalls returns how many times History was called for ticker
func (m *MockPriceProvider) HistoryCalls(ticker string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.historyCalls[strings.ToUpper(ticker)]
}

// InfoCalls returns how many times CurrentInfo was called for ticker
func (m *MockPriceProvider) InfoCalls(ticker string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.infoCalls[strings.ToUpper(ticker)]
}

func (m *MockPriceProvider) wait(ctx context.Context) error {
	m.mu.RLock()
	d := m.delay
	m.mu.RUnlock()
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns the configured samples inside [start, end]
func (m *MockPriceProvider) History(ctx context.Context, ticker string, start, end time.Time, interval domain.Interval) ([]domain.PriceSample, error) {
	ticker = strings.ToUpper(ticker)

	m.mu.Lock()
	m.historyCalls[ticker]++
	err := m.historyErr[ticker]
	samples := m.history[ticker]
	m.mu.Unlock()

	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return domain.NormalizeSamples(samples, start, end), nil
}

// CurrentInfo returns the configured snapshot
func (m *MockPriceProvider) CurrentInfo(ctx context.Context, ticker string) (*domain.CurrentInfo, error) {
	ticker = strings.ToUpper(ticker)

	m.mu.Lock()
	m.infoCalls[ticker]++
	err := m.infoErr[ticker]
	info, ok := m.infos[ticker]
	m.mu.Unlock()

	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTickerNotFound
	}
	copied := *info
	return &copied, nil
}

// MockHoldingRepository is an in-memory domain.HoldingRepository
type MockHoldingRepository struct {
	mu       sync.RWMutex
	holdings map[int64][]domain.Holding
	err      error
}

// NewMockHoldingRepository creates an empty mock repository
func NewMockHoldingRepository() *MockHoldingRepository {
	return &MockHoldingRepository{holdings: make(map[int64][]domain.Holding)}
}

// SetHoldings sets the holdings returned for a user
func (m *MockHoldingRepository) SetHoldings(userID int64, holdings []domain.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings[userID] = holdings
}

// SetError makes ListHoldings fail
func (m *MockHoldingRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ListHoldings returns the user's holdings
func (m *MockHoldingRepository) ListHoldings(ctx context.Context, userID int64) ([]domain.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Holding(nil), m.holdings[userID]...), nil
}

// MockConstituentSource is an in-memory domain.ConstituentSource
type MockConstituentSource struct {
	mu           sync.Mutex
	Constituents []domain.Constituent
	Err          error
	Calls        int
}

// SP500Constituents returns the configured list
func (m *MockConstituentSource) SP500Constituents(ctx context.Context) ([]domain.Constituent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Constituents, nil
}

// MockTickerDirectory is an in-memory domain.TickerDirectory
type MockTickerDirectory struct {
	mu      sync.Mutex
	Tickers map[string][]domain.ListedTicker
	Err     error
	Calls   int
}

// ExchangeTickers returns the configured tickers for exchange
func (m *MockTickerDirectory) ExchangeTickers(ctx context.Context, exchange string) ([]domain.ListedTicker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tickers[strings.ToLower(exchange)], nil
}
