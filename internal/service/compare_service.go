package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cryptofolio/internal/analytics"
	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// SeriesSource reads snapshot time series for charting.
type SeriesSource interface {
	GetSeries(ctx context.Context, assetKey string, from, to time.Time) ([]models.PriceSnapshot, error)
}

// CompareService builds chart-ready comparison series for two assets.
type CompareService struct {
	series           SeriesSource
	defaultMaxPoints int
	narrowMaxPoints  int
	now              func() time.Time
}

// NewCompareService creates a new compare service. defaultMaxPoints caps
// chart length when the caller does not ask for a specific cap;
// narrowMaxPoints is the tighter cap applied for narrow viewports. A nil
// clock defaults to time.Now.
func NewCompareService(series SeriesSource, defaultMaxPoints, narrowMaxPoints int, now func() time.Time) *CompareService {
	if now == nil {
		now = time.Now
	}
	if narrowMaxPoints <= 0 || narrowMaxPoints > defaultMaxPoints {
		narrowMaxPoints = defaultMaxPoints
	}
	return &CompareService{
		series:           series,
		defaultMaxPoints: defaultMaxPoints,
		narrowMaxPoints:  narrowMaxPoints,
		now:              now,
	}
}

// CompareInput represents input for a two-asset comparison chart
type CompareInput struct {
	BaseKey    string               `json:"baseKey"`
	QuoteKey   string               `json:"quoteKey"`
	Frame      types.TimeFrame      `json:"frame"`
	Field      models.SnapshotField `json:"field,omitempty"`
	Percentage bool                 `json:"percentage"`
	MaxPoints  int                  `json:"maxPoints,omitempty"`
	Narrow     bool                 `json:"narrow,omitempty"`
}

// CompareView is the chart payload for a two-asset comparison.
type CompareView struct {
	BaseKey    string                  `json:"baseKey"`
	QuoteKey   string                  `json:"quoteKey"`
	Frame      types.TimeFrame         `json:"frame"`
	Percentage bool                    `json:"percentage"`
	Points     []analytics.MergedPoint `json:"points"`
}

// Compare fetches both series over the frame's lookback window and merges
// them on their shared sampling grid. Both fetches run concurrently; the
// first failure aborts the comparison.
func (s *CompareService) Compare(ctx context.Context, input *CompareInput) (*CompareView, error) {
	if input.BaseKey == "" || input.QuoteKey == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "base and quote asset keys are required",
		}
	}
	if input.BaseKey == input.QuoteKey {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "base and quote must be different assets",
		}
	}

	// Unbounded frames read from the Unix epoch; ClickHouse DateTime64
	// cannot represent the zero time.
	to := s.now().UTC()
	from := time.Unix(0, 0).UTC()
	if lookback, ok := input.Frame.Duration(); ok {
		from = to.Add(-lookback)
	}

	var (
		wg         sync.WaitGroup
		baseSeries []models.PriceSnapshot
		baseErr    error
		quote      []models.PriceSnapshot
		quoteErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		baseSeries, baseErr = s.series.GetSeries(ctx, input.BaseKey, from, to)
	}()
	go func() {
		defer wg.Done()
		quote, quoteErr = s.series.GetSeries(ctx, input.QuoteKey, from, to)
	}()
	wg.Wait()

	if baseErr != nil {
		return nil, fmt.Errorf("failed to load series for %s: %w", input.BaseKey, baseErr)
	}
	if quoteErr != nil {
		return nil, fmt.Errorf("failed to load series for %s: %w", input.QuoteKey, quoteErr)
	}

	limit := s.defaultMaxPoints
	if input.Narrow {
		limit = s.narrowMaxPoints
	}
	maxPoints := input.MaxPoints
	if maxPoints <= 0 || maxPoints > limit {
		maxPoints = limit
	}

	points := analytics.AlignSeries(baseSeries, quote, analytics.AlignOptions{
		Field:      input.Field,
		Percentage: input.Percentage,
		MaxPoints:  maxPoints,
		Frame:      input.Frame,
	})

	return &CompareView{
		BaseKey:    input.BaseKey,
		QuoteKey:   input.QuoteKey,
		Frame:      input.Frame,
		Percentage: input.Percentage,
		Points:     points,
	}, nil
}
