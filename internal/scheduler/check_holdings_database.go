package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/utils"
	"github.com/rs/zerolog"
)

// CheckHoldingsDatabaseJob verifies integrity of the holdings SQLite database
type CheckHoldingsDatabaseJob struct {
	log zerolog.Logger
	db  *sql.DB
}

// NewCheckHoldingsDatabaseJob creates a new CheckHoldingsDatabaseJob
func NewCheckHoldingsDatabaseJob(db *sql.DB) *CheckHoldingsDatabaseJob {
	return &CheckHoldingsDatabaseJob{
		log: zerolog.Nop(),
		db:  db,
	}
}

// SetLogger sets the logger for the job
func (j *CheckHoldingsDatabaseJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CheckHoldingsDatabaseJob) Name() string {
	return "check_holdings_database"
}

// Run runs SQLite's integrity check. Corruption cannot be repaired here, only reported.
func (j *CheckHoldingsDatabaseJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Holdings database not initialized, skipping")
		return nil
	}

	defer utils.OperationTimer("holdings_integrity_check", j.log, 5*time.Second)()

	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		j.log.Error().Str("result", result).Msg("Holdings database integrity check failed")
		return fmt.Errorf("integrity check returned: %s", result)
	}

	j.log.Debug().Msg("Holdings database integrity OK")
	return nil
}
