package domain

import (
	"fmt"
	"strings"
	"time"
)

// Range is a selectable time window
type Range string

// Portfolio ranges
const (
	Range1D  Range = "1D"
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range3M  Range = "3M"
	Range1Y  Range = "1Y"
	RangeAll Range = "ALL"
)

// Chart-only ranges, accepted by single-stock charts but not the portfolio engine
const (
	Range6M  Range = "6M"
	RangeYTD Range = "YTD"
	Range5Y  Range = "5Y"
	RangeMax Range = "MAX"
)

// Interval is a provider sampling interval
type Interval string

const (
	Interval5m  Interval = "5m"
	Interval30m Interval = "30m"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

const (
	day          = 24 * time.Hour
	labelTime    = "15:04"
	labelDayTime = "Jan 02 15:04"
	labelDay     = "Jan 02"
	labelMonth   = "Jan 2006"
	labelYear    = "2006"
)

// Intraday reports whether the interval is finer than a day
func (i Interval) Intraday() bool {
	return i == Interval5m || i == Interval30m
}

// Truncate rounds t down to the start of the interval step containing it, in UTC.
func (i Interval) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch i {
	case Interval5m:
		return t.Truncate(5 * time.Minute)
	case Interval30m:
		return t.Truncate(30 * time.Minute)
	case Interval1wk:
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return d.AddDate(0, 0, -int(d.Weekday()))
	case Interval1mo:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the interval step after the one containing t
func (i Interval) Next(t time.Time) time.Time {
	b := i.Truncate(t)
	switch i {
	case Interval5m:
		return b.Add(5 * time.Minute)
	case Interval30m:
		return b.Add(30 * time.Minute)
	case Interval1wk:
		return b.AddDate(0, 0, 7)
	case Interval1mo:
		return b.AddDate(0, 1, 0)
	default:
		return b.AddDate(0, 0, 1)
	}
}

// Step returns the nominal length of one bar. Months count as 31 days.
func (i Interval) Step() time.Duration {
	switch i {
	case Interval5m:
		return 5 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1wk:
		return 7 * day
	case Interval1mo:
		return 31 * day
	default:
		return day
	}
}

// RangeSpec describes how a range is fetched and labelled.
// A zero Lookback means the range has no fixed start.
type RangeSpec struct {
	Range       Range
	Interval    Interval
	LabelLayout string
	Lookback    time.Duration
	Portfolio   bool
}

var rangeSpecs = map[Range]RangeSpec{
	Range1D:  {Range: Range1D, Lookback: day, Interval: Interval5m, LabelLayout: labelTime, Portfolio: true},
	Range1W:  {Range: Range1W, Lookback: 7 * day, Interval: Interval30m, LabelLayout: labelDayTime, Portfolio: true},
	Range1M:  {Range: Range1M, Lookback: 30 * day, Interval: Interval1d, LabelLayout: labelDay, Portfolio: true},
	Range3M:  {Range: Range3M, Lookback: 90 * day, Interval: Interval1d, LabelLayout: labelDay, Portfolio: true},
	Range1Y:  {Range: Range1Y, Lookback: 365 * day, Interval: Interval1d, LabelLayout: labelDay, Portfolio: true},
	RangeAll: {Range: RangeAll, Interval: Interval1mo, LabelLayout: labelYear, Portfolio: true},
	Range6M:  {Range: Range6M, Lookback: 182 * day, Interval: Interval1d, LabelLayout: labelDay},
	RangeYTD: {Range: RangeYTD, Interval: Interval1d, LabelLayout: labelDay},
	Range5Y:  {Range: Range5Y, Lookback: 5 * 365 * day, Interval: Interval1wk, LabelLayout: labelMonth},
	RangeMax: {Range: RangeMax, Interval: Interval1mo, LabelLayout: labelYear},
}

// PortfolioRanges lists the ranges the portfolio engine accepts, shortest first
var PortfolioRanges = []Range{Range1D, Range1W, Range1M, Range3M, Range1Y, RangeAll}

// ParseRange parses any known range, case-insensitively
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := rangeSpecs[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return r, nil
}

// ParsePortfolioRange parses a range and rejects chart-only ranges
func ParsePortfolioRange(s string) (Range, error) {
	r, err := ParseRange(s)
	if err != nil {
		return "", err
	}
	if !r.IsPortfolio() {
		return "", fmt.Errorf("%w: %q is not a portfolio range", ErrInvalidRange, s)
	}
	return r, nil
}

// Spec returns the range's table entry. Unknown ranges yield a zero RangeSpec.
func (r Range) Spec() RangeSpec {
	return rangeSpecs[r]
}

// Valid reports whether r is a known range
func (r Range) Valid() bool {
	_, ok := rangeSpecs[r]
	return ok
}

// IsPortfolio reports whether the portfolio engine accepts r
func (r Range) IsPortfolio() bool {
	return rangeSpecs[r].Portfolio
}

// Interval returns the sampling interval for r
func (r Range) Interval() Interval {
	return rangeSpecs[r].Interval
}

// Cutoff returns the start of the window relative to now.
// The second return value is false for ranges without a fixed start (ALL, MAX).
func (r Range) Cutoff(now time.Time) (time.Time, bool) {
	if r == RangeYTD {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	}
	spec, ok := rangeSpecs[r]
	if !ok || spec.Lookback == 0 {
		return time.Time{}, false
	}
	return now.Add(-spec.Lookback), true
}

// Label formats t for display in loc using the range's label layout
func (r Range) Label(t time.Time, loc *time.Location) string {
	layout := rangeSpecs[r].LabelLayout
	if layout == "" {
		layout = labelDay
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(layout)
}
