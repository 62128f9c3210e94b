package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// purchaseDateLayouts are the formats accepted in holdings.purchase_date
var purchaseDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// HoldingRepository reads holdings from the holdings database
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// ListHoldings returns all holdings owned by userID
func (r *HoldingRepository) ListHoldings(ctx context.Context, userID int64) ([]domain.Holding, error) {
	query := `SELECT id, user_id, ticker, shares, buy_price, purchase_date
		FROM holdings
		WHERE user_id = ?
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	r.log.Debug().Int64("user_id", userID).Int("count", len(holdings)).Msg("Listed holdings")
	return holdings, nil
}

func scanHolding(rows *sql.Rows) (domain.Holding, error) {
	var (
		h                          domain.Holding
		shares, buyPrice, purchase string
	)
	if err := rows.Scan(&h.ID, &h.UserID, &h.Ticker, &shares, &buyPrice, &purchase); err != nil {
		return h, err
	}

	var err error
	if h.Shares, err = decimal.NewFromString(shares); err != nil {
		return h, fmt.Errorf("holding %d shares %q: %w", h.ID, shares, err)
	}
	if h.BuyPrice, err = decimal.NewFromString(buyPrice); err != nil {
		return h, fmt.Errorf("holding %d buy_price %q: %w", h.ID, buyPrice, err)
	}
	if h.PurchaseDate, err = parsePurchaseDate(purchase); err != nil {
		return h, fmt.Errorf("holding %d: %w", h.ID, err)
	}
	h.Ticker = strings.ToUpper(h.Ticker)
	return h, nil
}

func parsePurchaseDate(s string) (time.Time, error) {
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised purchase_date %q", s)
}
