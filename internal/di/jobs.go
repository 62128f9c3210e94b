package di

import (
	"fmt"
	"time"

	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	// holdingsCheckSchedule runs the integrity check hourly
	holdingsCheckSchedule = "0 15 * * * *"

	backupTimeout = 10 * time.Minute
)

// RegisterJobs creates the scheduler and registers the background jobs.
// The scheduler is stored on the container but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched

	refresh := scheduler.NewRefreshReferenceDataJob(container.MarketService, cfg.RefreshExchanges, cfg.RefreshTimeout)
	refresh.SetLogger(log.With().Str("job", refresh.Name()).Logger())
	if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", refresh.Name(), err)
	}

	check := scheduler.NewCheckHoldingsDatabaseJob(container.HoldingsDB.Conn())
	check.SetLogger(log.With().Str("job", check.Name()).Logger())
	if err := sched.AddJob(holdingsCheckSchedule, check); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", check.Name(), err)
	}

	jobs := &JobInstances{
		RefreshReferenceData:  refresh,
		CheckHoldingsDatabase: check,
	}

	if container.BackupService != nil {
		backup := scheduler.NewBackupHoldingsJob(container.BackupService, cfg.BackupRetentionDays, backupTimeout)
		backup.SetLogger(log.With().Str("job", backup.Name()).Logger())
		if err := sched.AddJob(cfg.BackupSchedule, backup); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", backup.Name(), err)
		}
		jobs.BackupHoldings = backup
	}

	return jobs, nil
}
