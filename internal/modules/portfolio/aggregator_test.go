package portfolio

import (
	"testing"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projected(ticker, baseline string, start time.Time, offsets []int, values ...string) domain.ProjectedHolding {
	p := domain.ProjectedHolding{
		Ticker:        ticker,
		BaselineValue: decimal.RequireFromString(baseline),
	}
	for i, v := range values {
		p.Timestamps = append(p.Timestamps, start.AddDate(0, 0, offsets[i]))
		p.PositionValues = append(p.PositionValues, decimal.RequireFromString(v))
	}
	return p
}

func returns(points []domain.PortfolioPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.ReturnPercent.String()
	}
	return out
}

func TestAggregate_Empty(t *testing.T) {
	points := NewAggregator(nil).Aggregate(nil, domain.Range1M, AlignByIndex)
	require.NotNil(t, points)
	assert.Empty(t, points)
}

func TestAggregate_ZeroBaselineYieldsZeroReturn(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	p := projected("FREE", "0", start, []int{0, 1}, "0", "50")

	for _, alignment := range []Alignment{AlignByIndex, AlignByCalendar} {
		points := NewAggregator(time.UTC).Aggregate([]domain.ProjectedHolding{p}, domain.Range1M, alignment)
		assert.Equal(t, []string{"0", "0"}, returns(points), string(alignment))
	}
}

func TestAggregate_IndexAlignment(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	a := projected("A", "100", start, []int{0, 1, 2}, "100", "110", "120")
	b := projected("B", "50", start, []int{0, 1}, "50", "40")

	points := NewAggregator(time.UTC).Aggregate([]domain.ProjectedHolding{a, b}, domain.Range1M, AlignByIndex)

	// B stops contributing a position value after index 1 but its baseline stays in the sum
	assert.Equal(t, []string{"0", "0", "-20"}, returns(points))
	assert.Equal(t, []string{"Jun 03", "Jun 04", "Jun 05"}, []string{points[0].Label, points[1].Label, points[2].Label})
}

func TestAggregate_IndexAlignmentFollowsFirstHoldingTimeline(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	a := projected("A", "100", start, []int{0}, "100")
	b := projected("B", "100", start, []int{0, 1, 2}, "100", "200", "300")

	points := NewAggregator(time.UTC).Aggregate([]domain.ProjectedHolding{a, b}, domain.Range1M, AlignByIndex)
	assert.Len(t, points, 1)
}

func TestAggregate_CalendarAlignment(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	a := projected("A", "100", start, []int{0, 2}, "100", "120")
	b := projected("B", "50", start, []int{1, 2}, "50", "60")

	points := NewAggregator(time.UTC).Aggregate([]domain.ProjectedHolding{a, b}, domain.Range1M, AlignByCalendar)

	require.Len(t, points, 3)
	assert.Equal(t, []string{"0", "0", "20"}, returns(points))
	assert.Equal(t, start.AddDate(0, 0, 1), points[1].Timestamp)
}

func TestAggregate_CalendarCarriesLastValueForward(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	a := projected("A", "100", start, []int{0, 1, 2}, "100", "110", "130")
	b := projected("B", "100", start, []int{0, 2}, "100", "90")

	points := NewAggregator(time.UTC).Aggregate([]domain.ProjectedHolding{a, b}, domain.Range1M, AlignByCalendar)

	// at day 1 B still counts at its day-0 value
	assert.Equal(t, []string{"0", "5", "10"}, returns(points))
}

func TestReturnPercent(t *testing.T) {
	tests := []struct {
		value, base, want string
	}{
		{"1200", "900", "33.33"},
		{"1200", "1000", "20"},
		{"600", "900", "-33.33"},
		{"8.0004", "8", "0.01"},
		{"7.9996", "8", "-0.01"},
		{"5", "0", "0"},
	}
	for _, tt := range tests {
		got := ReturnPercent(decimal.RequireFromString(tt.value), decimal.RequireFromString(tt.base))
		assert.Equal(t, tt.want, got.String(), "%s vs %s", tt.value, tt.base)
	}
}

func TestParseAlignment(t *testing.T) {
	a, err := ParseAlignment("")
	require.NoError(t, err)
	assert.Equal(t, AlignByIndex, a)

	a, err = ParseAlignment("Calendar")
	require.NoError(t, err)
	assert.Equal(t, AlignByCalendar, a)

	_, err = ParseAlignment("nearest")
	assert.Error(t, err)
}
