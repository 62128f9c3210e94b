package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HoldingsBackuper uploads and rotates holdings database backups
type HoldingsBackuper interface {
	CreateAndUploadBackup(ctx context.Context) (string, error)
	RotateOldBackups(ctx context.Context, retentionDays int) (int, error)
}

// BackupHoldingsJob ships a snapshot of holdings.db off-site and prunes old ones
type BackupHoldingsJob struct {
	log           zerolog.Logger
	backuper      HoldingsBackuper
	retentionDays int
	timeout       time.Duration
}

// NewBackupHoldingsJob creates a new BackupHoldingsJob
func NewBackupHoldingsJob(backuper HoldingsBackuper, retentionDays int, timeout time.Duration) *BackupHoldingsJob {
	return &BackupHoldingsJob{
		log:           zerolog.Nop(),
		backuper:      backuper,
		retentionDays: retentionDays,
		timeout:       timeout,
	}
}

// SetLogger sets the logger for the job
func (j *BackupHoldingsJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *BackupHoldingsJob) Name() string {
	return "backup_holdings"
}

// Run uploads a new backup, then rotates. A failed rotation does not fail the job.
func (j *BackupHoldingsJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	key, err := j.backuper.CreateAndUploadBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	j.log.Info().Str("key", key).Msg("Holdings backup uploaded")

	if _, err := j.backuper.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
