package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	testutil "github.com/aristath/stockfolio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int32
	err  error
}

func (j *countingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	// five-field specs are rejected because seconds are required
	assert.Error(t, s.AddJob("0 5 * * *", &countingJob{}))
	assert.NoError(t, s.AddJob("0 0 5 * * *", &countingJob{}))
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) > 0 }, 3*time.Second, 20*time.Millisecond)
	s.Stop(context.Background())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs)
}

type fakeRefresher struct {
	exchanges []string
	deadline  bool
	err       error
}

func (f *fakeRefresher) RefreshReferenceData(ctx context.Context, exchanges []string) error {
	f.exchanges = exchanges
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestRefreshReferenceDataJob(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewRefreshReferenceDataJob(refresher, []string{"nyse", "nasdaq"}, time.Minute)
	job.SetLogger(zerolog.Nop())

	assert.Equal(t, "refresh_reference_data", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, []string{"nyse", "nasdaq"}, refresher.exchanges)
	assert.True(t, refresher.deadline)

	refresher.err = errors.New("upstream down")
	assert.Error(t, job.Run())
}

func TestCheckHoldingsDatabaseJob(t *testing.T) {
	job := NewCheckHoldingsDatabaseJob(nil)
	assert.Equal(t, "check_holdings_database", job.Name())
	assert.NoError(t, job.Run(), "nil database is skipped")

	db := testutil.NewTestDB(t)
	job = NewCheckHoldingsDatabaseJob(db.Conn())
	assert.NoError(t, job.Run())
}

type fakeBackuper struct {
	uploadErr error
	rotateErr error
	rotated   int
}

func (f *fakeBackuper) CreateAndUploadBackup(ctx context.Context) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "holdings-backup-2024-06-01-000000.tar.gz", nil
}

func (f *fakeBackuper) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	f.rotated = retentionDays
	return 0, f.rotateErr
}

func TestBackupHoldingsJob(t *testing.T) {
	backuper := &fakeBackuper{rotateErr: errors.New("list failed")}
	job := NewBackupHoldingsJob(backuper, 30, time.Minute)

	assert.Equal(t, "backup_holdings", job.Name())
	assert.NoError(t, job.Run(), "rotation errors are logged only")
	assert.Equal(t, 30, backuper.rotated)

	backuper.uploadErr = errors.New("bucket missing")
	assert.Error(t, job.Run())
}
