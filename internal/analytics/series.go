package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// MergedPoint is one chart-ready row of a two-asset comparison series.
type MergedPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Label     string          `json:"label"`
	Base      decimal.Decimal `json:"base"`
	Quote     decimal.Decimal `json:"quote"`
}

// AlignOptions controls how two snapshot series are merged for display.
type AlignOptions struct {
	// Field selects the snapshot metric to chart (price by default).
	Field models.SnapshotField
	// Percentage rebases both sides to percent change from the first
	// merged row instead of raw values.
	Percentage bool
	// MaxPoints caps the output length via stride downsampling; zero or
	// negative disables downsampling.
	MaxPoints int
	// Frame picks the label granularity (hour:minute for intraday,
	// weekday+date for a week, month+year for a year or more).
	Frame types.TimeFrame
}

// AlignSeries merges two snapshot series into one chart series. Rows are
// emitted only where both series carry the exact same timestamp (an
// inner join on the shared sampling grid, not nearest-neighbor), so
// series sampled on different grids produce an empty intersection, which
// is returned as an empty slice rather than an error.
//
// Output is strictly ascending by timestamp and deterministic for a
// fixed input pair and options. In percentage mode both sides are
// rebased to ((v - v0) / v0) * 100 against the first merged row.
func AlignSeries(seriesA, seriesB []models.PriceSnapshot, opts AlignOptions) []MergedPoint {
	if len(seriesA) == 0 || len(seriesB) == 0 {
		return []MergedPoint{}
	}

	quoteByTime := make(map[int64]models.PriceSnapshot, len(seriesB))
	for _, p := range seriesB {
		quoteByTime[p.Timestamp.Unix()] = p
	}

	merged := make([]MergedPoint, 0, len(seriesA))
	for _, a := range seriesA {
		b, ok := quoteByTime[a.Timestamp.Unix()]
		if !ok {
			continue
		}
		merged = append(merged, MergedPoint{
			Timestamp: a.Timestamp,
			Base:      a.Value(opts.Field),
			Quote:     b.Value(opts.Field),
		})
	}
	if len(merged) == 0 {
		return merged
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	if opts.Percentage {
		rebase(merged)
	}

	for i := range merged {
		merged[i].Label = frameLabel(merged[i].Timestamp, opts.Frame)
	}

	return downsample(merged, opts.MaxPoints)
}

// rebase rewrites both sides of the series as percent change from the
// first row. A zero base has no meaningful rebase and maps to 0.
func rebase(points []MergedPoint) {
	baseA, baseB := points[0].Base, points[0].Quote
	for i := range points {
		points[i].Base = percentFromBase(points[i].Base, baseA)
		points[i].Quote = percentFromBase(points[i].Quote, baseB)
	}
}

func percentFromBase(v, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return v.Sub(base).Div(base).Mul(hundred)
}

// frameLabel formats a timestamp for chart axes at a granularity that
// matches the requested window.
func frameLabel(t time.Time, frame types.TimeFrame) string {
	switch frame {
	case types.Frame1H, types.Frame24H:
		return t.Format("15:04")
	case types.Frame7D:
		return t.Format("Mon Jan 2")
	case types.Frame1Y, types.FrameAll:
		return t.Format("Jan 2006")
	default:
		return t.Format("Jan 2")
	}
}

// downsample keeps every stride-th row where stride = ceil(len/max).
// Index 0 is always retained and relative order is preserved.
func downsample(points []MergedPoint, maxPoints int) []MergedPoint {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	stride := (len(points) + maxPoints - 1) / maxPoints
	kept := make([]MergedPoint, 0, maxPoints)
	for i := 0; i < len(points); i += stride {
		kept = append(kept, points[i])
	}
	return kept
}
