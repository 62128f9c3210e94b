package testing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// NewTestDB creates a migrated holdings database in a temporary directory.
// The database is closed when the test finishes.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "holdings.db"),
		Name: "holdings",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// InsertHolding writes a holding row and returns its id
func InsertHolding(t *testing.T, db *database.DB, h domain.Holding) int64 {
	t.Helper()

	res, err := db.Conn().ExecContext(context.Background(),
		`INSERT INTO holdings (user_id, ticker, shares, buy_price, purchase_date) VALUES (?, ?, ?, ?, ?)`,
		h.UserID, h.Ticker, h.Shares.String(), h.BuyPrice.String(), h.PurchaseDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to insert holding: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read holding id: %v", err)
	}
	return id
}
