package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Alignment selects how holdings' series are put on one timeline
type Alignment string

const (
	// AlignByIndex uses the first holding's timestamps as the timeline and
	// sums every holding's i-th value at index i.
	AlignByIndex Alignment = "index"
	// AlignByCalendar uses the union of all timestamps; each holding contributes
	// its last known value from its first sample onward.
	AlignByCalendar Alignment = "calendar"
)

var hundred = decimal.NewFromInt(100)

// ParseAlignment parses an alignment name, defaulting to AlignByIndex when empty
func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlignByIndex:
		return AlignByIndex, nil
	case AlignByCalendar:
		return AlignByCalendar, nil
	default:
		return "", fmt.Errorf("unknown alignment %q (must be index or calendar)", s)
	}
}

// Aggregator merges projected holdings into one return series
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator labelling points in loc (UTC when nil)
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Aggregate returns one point per aligned timestamp. No projections yields an empty slice.
func (a *Aggregator) Aggregate(projections []domain.ProjectedHolding, rng domain.Range, alignment Alignment) []domain.PortfolioPoint {
	if len(projections) == 0 {
		return []domain.PortfolioPoint{}
	}
	if alignment == AlignByCalendar {
		return a.byCalendar(projections, rng)
	}
	return a.byIndex(projections, rng)
}

func (a *Aggregator) byIndex(projections []domain.ProjectedHolding, rng domain.Range) []domain.PortfolioPoint {
	reference := projections[0]

	baseSum := decimal.Zero
	for _, p := range projections {
		baseSum = baseSum.Add(p.BaselineValue)
	}

	points := make([]domain.PortfolioPoint, 0, reference.Len())
	for i, ts := range reference.Timestamps {
		posSum := decimal.Zero
		for _, p := range projections {
			if i < p.Len() {
				posSum = posSum.Add(p.PositionValues[i])
			}
		}
		points = append(points, a.point(ts, rng, posSum, baseSum))
	}
	return points
}

func (a *Aggregator) byCalendar(projections []domain.ProjectedHolding, rng domain.Range) []domain.PortfolioPoint {
	timeline := unionTimestamps(projections)
	cursors := make([]int, len(projections))
	for i := range cursors {
		cursors[i] = -1
	}

	points := make([]domain.PortfolioPoint, 0, len(timeline))
	for _, ts := range timeline {
		posSum, baseSum := decimal.Zero, decimal.Zero
		for h, p := range projections {
			for cursors[h]+1 < p.Len() && !p.Timestamps[cursors[h]+1].After(ts) {
				cursors[h]++
			}
			if cursors[h] < 0 {
				continue // not started yet
			}
			posSum = posSum.Add(p.PositionValues[cursors[h]])
			baseSum = baseSum.Add(p.BaselineValue)
		}
		points = append(points, a.point(ts, rng, posSum, baseSum))
	}
	return points
}

func (a *Aggregator) point(ts time.Time, rng domain.Range, posSum, baseSum decimal.Decimal) domain.PortfolioPoint {
	return domain.PortfolioPoint{
		Timestamp:     ts,
		Label:         rng.Label(ts, a.loc),
		ReturnPercent: ReturnPercent(posSum, baseSum),
	}
}

// ReturnPercent is ((value - base) / base) × 100 rounded to 2dp, or 0 when base is 0
func ReturnPercent(value, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return value.Sub(base).Div(base).Mul(hundred).Round(2)
}

func unionTimestamps(projections []domain.ProjectedHolding) []time.Time {
	seen := make(map[int64]struct{})
	var out []time.Time
	for _, p := range projections {
		for _, ts := range p.Timestamps {
			key := ts.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
