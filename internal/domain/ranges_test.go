package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortfolioRange(t *testing.T) {
	for _, r := range PortfolioRanges {
		got, err := ParsePortfolioRange(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParsePortfolioRange(" 1m ")
	require.NoError(t, err)
	assert.Equal(t, Range1M, got)

	_, err = ParsePortfolioRange("5Y")
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = ParsePortfolioRange("2W")
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestRangeTable(t *testing.T) {
	assert.Equal(t, Interval5m, Range1D.Interval())
	assert.Equal(t, Interval30m, Range1W.Interval())
	assert.Equal(t, Interval1d, Range1M.Interval())
	assert.Equal(t, Interval1d, Range3M.Interval())
	assert.Equal(t, Interval1d, Range1Y.Interval())
	assert.Equal(t, Interval1mo, RangeAll.Interval())
	assert.Equal(t, Interval1wk, Range5Y.Interval())
}

func TestRangeCutoff(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cutoff, ok := Range1M.Cutoff(now)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -30), cutoff)

	cutoff, ok = Range1D.Cutoff(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(-24*time.Hour), cutoff)

	cutoff, ok = RangeYTD.Cutoff(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cutoff)

	_, ok = RangeAll.Cutoff(now)
	assert.False(t, ok)
}

func TestIntervalTruncate(t *testing.T) {
	ts := time.Date(2024, 6, 13, 14, 47, 31, 0, time.UTC) // Thursday

	assert.Equal(t, time.Date(2024, 6, 13, 14, 45, 0, 0, time.UTC), Interval5m.Truncate(ts))
	assert.Equal(t, time.Date(2024, 6, 13, 14, 30, 0, 0, time.UTC), Interval30m.Truncate(ts))
	assert.Equal(t, time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), Interval1d.Truncate(ts))
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), Interval1wk.Truncate(ts))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Interval1mo.Truncate(ts))
}

func TestRangeLabel(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts := time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "10:30", Range1D.Label(ts, ny))
	assert.Equal(t, "Mar 05 10:30", Range1W.Label(ts, ny))
	assert.Equal(t, "Mar 05", Range1M.Label(ts, ny))
	assert.Equal(t, "2024", RangeAll.Label(ts, ny))
}

func TestIntervalNext(t *testing.T) {
	ts := time.Date(2024, 1, 31, 23, 58, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Interval5m.Next(ts))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Interval1d.Next(ts))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Interval1mo.Next(ts))
}

func TestIntervalStep(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Interval5m.Step())
	assert.Equal(t, 30*time.Minute, Interval30m.Step())
	assert.Equal(t, 24*time.Hour, Interval1d.Step())
	assert.Equal(t, 7*24*time.Hour, Interval1wk.Step())
	assert.Equal(t, 31*24*time.Hour, Interval1mo.Step())
}
