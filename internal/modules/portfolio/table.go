package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// TableRow is a best-effort snapshot of one holding.
// When Available is false the price-derived fields are unset and Error says why.
type TableRow struct {
	CurrentPrice    decimal.NullDecimal `json:"current_price"`
	TodayPercent    decimal.NullDecimal `json:"today_percent"`
	LifetimePercent decimal.NullDecimal `json:"lifetime_percent"`
	LifetimeGain    decimal.NullDecimal `json:"lifetime_gain"`
	MarketValue     decimal.NullDecimal `json:"market_value"`
	Ticker          string              `json:"ticker"`
	Error           string              `json:"error,omitempty"`
	Kind            domain.ErrorKind    `json:"kind,omitempty"`
	Shares          decimal.Decimal     `json:"shares"`
	BuyPrice        decimal.Decimal     `json:"buy_price"`
	CostBasis       decimal.Decimal     `json:"cost_basis"`
	ID              int64               `json:"id"`
	Available       bool                `json:"available"`
}

// TableTotals sums the rows that have a current price
type TableTotals struct {
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent decimal.Decimal `json:"total_gain_loss_percent"`
	AvailableCount       int             `json:"available_count"`
}

// PortfolioTable is the per-holding snapshot table
type PortfolioTable struct {
	Rows   []TableRow  `json:"holdings"`
	Totals TableTotals `json:"totals"`
}

// GetPortfolioTable fetches current info for every holding. A holding whose
// fetch fails stays in the table marked unavailable.
func (s *Service) GetPortfolioTable(ctx context.Context, holdings []domain.Holding) (*PortfolioTable, error) {
	table := &PortfolioTable{Rows: make([]TableRow, len(holdings))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, h := range holdings {
		g.Go(func() error {
			table.Rows[i] = s.tableRow(gctx, h)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portfolio table: %w", err)
	}

	table.Totals = totals(table.Rows)
	return table, nil
}

func (s *Service) tableRow(ctx context.Context, h domain.Holding) TableRow {
	row := TableRow{
		ID:        h.ID,
		Ticker:    h.Ticker,
		Shares:    h.Shares,
		BuyPrice:  h.BuyPrice,
		CostBasis: h.CostBasis().Round(2),
	}

	if err := h.Validate(s.now()); err != nil {
		row.Error = err.Error()
		row.Kind = domain.KindInvalid
		s.log.Warn().Err(err).Str("ticker", h.Ticker).Msg("Skipping invalid holding in table")
		return row
	}

	info, err := s.prices.CurrentInfo(ctx, h.Ticker)
	if err != nil {
		row.Error = err.Error()
		row.Kind = domain.ClassifyError(err)
		s.log.Warn().Err(err).Str("ticker", h.Ticker).Msg("Current info unavailable for table row")
		return row
	}
	if !info.CurrentPrice.Valid {
		row.Error = "current price not available"
		row.Kind = domain.KindNoData
		return row
	}

	price := info.CurrentPrice.Decimal
	value := price.Mul(h.Shares)
	cost := h.CostBasis()
	gain := value.Sub(cost)

	row.Available = true
	row.CurrentPrice = domain.NullDecimal(price)
	row.MarketValue = domain.NullDecimal(value.Round(2))
	row.LifetimeGain = domain.NullDecimal(gain.Round(2))
	row.LifetimePercent = domain.NullDecimal(ReturnPercent(value, cost))
	if today, ok := info.ChangePercent(); ok {
		row.TodayPercent = domain.NullDecimal(today)
	}
	return row
}

func totals(rows []TableRow) TableTotals {
	value, cost := decimal.Zero, decimal.Zero
	count := 0
	for _, r := range rows {
		if !r.Available {
			continue
		}
		count++
		value = value.Add(r.Shares.Mul(r.CurrentPrice.Decimal))
		cost = cost.Add(r.Shares.Mul(r.BuyPrice))
	}

	return TableTotals{
		TotalValue:           value.Round(2),
		TotalCost:            cost.Round(2),
		TotalGainLoss:        value.Sub(cost).Round(2),
		TotalGainLossPercent: ReturnPercent(value, cost),
		AvailableCount:       count,
	}
}
