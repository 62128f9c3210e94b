package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReferenceRefresher re-fetches cached reference lists
type ReferenceRefresher interface {
	RefreshReferenceData(ctx context.Context, exchanges []string) error
}

// RefreshReferenceDataJob refreshes the S&P 500 list and exchange ticker directories
type RefreshReferenceDataJob struct {
	log       zerolog.Logger
	refresher ReferenceRefresher
	exchanges []string
	timeout   time.Duration
}

// NewRefreshReferenceDataJob creates a new RefreshReferenceDataJob.
// Directory pages are fetched with a delay, so the timeout must allow for it.
func NewRefreshReferenceDataJob(refresher ReferenceRefresher, exchanges []string, timeout time.Duration) *RefreshReferenceDataJob {
	return &RefreshReferenceDataJob{
		log:       zerolog.Nop(),
		refresher: refresher,
		exchanges: exchanges,
		timeout:   timeout,
	}
}

// SetLogger sets the logger for the job
func (j *RefreshReferenceDataJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *RefreshReferenceDataJob) Name() string {
	return "refresh_reference_data"
}

// Run executes the refresh
func (j *RefreshReferenceDataJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	j.log.Info().Strs("exchanges", j.exchanges).Msg("Starting reference data refresh")

	if err := j.refresher.RefreshReferenceData(ctx, j.exchanges); err != nil {
		j.log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Reference data refresh failed")
		return err
	}

	j.log.Info().Dur("duration", time.Since(start)).Msg("Reference data refreshed")
	return nil
}
