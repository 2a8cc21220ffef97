package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptofolio/internal/logging"
	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/retry"
	"github.com/cryptofolio/internal/types"
)

// SnapshotWriter persists market snapshot batches.
type SnapshotWriter interface {
	InsertBatch(ctx context.Context, snapshots []models.PriceSnapshot) error
}

// QuoteInvalidator drops cached latest quotes after fresh data arrives.
type QuoteInvalidator interface {
	InvalidateAsset(ctx context.Context, assetKey string) error
}

// SnapshotService ingests market snapshots and serves their series.
// Ingestion is idempotent: re-submitting a (assetKey, timestamp) pair
// that already exists never rewrites the stored observation.
type SnapshotService struct {
	snapshots   SnapshotWriter
	series      SeriesSource
	cache       QuoteInvalidator
	retryConfig *retry.Config
	now         func() time.Time
}

// NewSnapshotService creates a new snapshot service. A nil retry config
// uses the default ingestion backoff; a nil clock defaults to time.Now.
func NewSnapshotService(snapshots SnapshotWriter, series SeriesSource, cache QuoteInvalidator, retryConfig *retry.Config, now func() time.Time) *SnapshotService {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig()
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotService{
		snapshots:   snapshots,
		series:      series,
		cache:       cache,
		retryConfig: retryConfig,
		now:         now,
	}
}

// Ingest validates and persists a batch of snapshots, retrying transient
// storage failures with exponential backoff. Returns the number of
// snapshots accepted.
func (s *SnapshotService) Ingest(ctx context.Context, snapshots []models.PriceSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "snapshot batch is empty",
		}
	}

	for i := range snapshots {
		if err := validateSnapshot(&snapshots[i]); err != nil {
			return 0, err
		}
		snapshots[i].Timestamp = snapshots[i].Timestamp.UTC()
	}

	err := retry.WithBackoff(ctx, s.retryConfig, func(ctx context.Context, attempt int) error {
		return s.snapshots.InsertBatch(ctx, snapshots)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to ingest snapshot batch: %w", err)
	}

	logger := logging.FromContext(ctx)
	seen := make(map[string]bool)
	for i := range snapshots {
		key := snapshots[i].AssetKey
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := s.cache.InvalidateAsset(ctx, key); err != nil {
			logger.WithError(err).Warn("Failed to invalidate quote cache after ingest")
		}
	}
	return len(snapshots), nil
}

// GetSeries returns one asset's snapshots over a frame's lookback
// window, ascending by timestamp.
func (s *SnapshotService) GetSeries(ctx context.Context, assetKey string, frame types.TimeFrame) ([]models.PriceSnapshot, error) {
	if assetKey == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "asset key is required",
		}
	}

	// Unbounded frames read from the Unix epoch; ClickHouse DateTime64
	// cannot represent the zero time.
	to := s.now().UTC()
	from := time.Unix(0, 0).UTC()
	if lookback, ok := frame.Duration(); ok {
		from = to.Add(-lookback)
	}

	series, err := s.series.GetSeries(ctx, assetKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load series for %s: %w", assetKey, err)
	}
	return series, nil
}

func validateSnapshot(snapshot *models.PriceSnapshot) error {
	invalid := func(message string) error {
		return &types.ServiceError{Code: "INVALID_INPUT", Message: message}
	}

	if snapshot.AssetKey == "" {
		return invalid("snapshot assetKey is required")
	}
	if snapshot.Timestamp.IsZero() {
		return invalid(fmt.Sprintf("snapshot for %s has no timestamp", snapshot.AssetKey))
	}
	if snapshot.Price.IsNegative() {
		return invalid(fmt.Sprintf("snapshot for %s has a negative price", snapshot.AssetKey))
	}
	return nil
}
