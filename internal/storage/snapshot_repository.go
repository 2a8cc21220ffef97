package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
)

// SnapshotRepository handles the price snapshot time series in ClickHouse.
// The table is a ReplacingMergeTree keyed on (asset_key, ts): re-ingesting
// the same key is idempotent and collapses to one row, which makes batch
// ingestion safe to retry without rewriting finalized history.
type SnapshotRepository struct {
	db *ClickHouseDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *ClickHouseDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `asset_key, ts, price, market_cap, volume_24h, circulating_supply, total_supply`

// InsertBatch appends a batch of snapshots.
func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []models.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx,
		`INSERT INTO price_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}

	for _, s := range snapshots {
		err := batch.Append(
			s.AssetKey,
			s.Timestamp.UTC(),
			s.Price.InexactFloat64(),
			s.MarketCap.InexactFloat64(),
			s.Volume24h.InexactFloat64(),
			s.CirculatingSupply.InexactFloat64(),
			s.TotalSupply.InexactFloat64(),
		)
		if err != nil {
			return fmt.Errorf("failed to append snapshot for %s: %w", s.AssetKey, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send snapshot batch: %w", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for an asset, or nil when
// the asset has no snapshots at all.
func (r *SnapshotRepository) GetLatest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM price_snapshots FINAL
		WHERE asset_key = ?
		ORDER BY ts DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, assetKey)
}

// GetEarliest returns the first snapshot ever recorded for an asset, or
// nil when the asset has no snapshots. It anchors the all-time window.
func (r *SnapshotRepository) GetEarliest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM price_snapshots FINAL
		WHERE asset_key = ?
		ORDER BY ts ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, assetKey)
}

// GetAtOrBefore returns the latest snapshot with ts <= asOf: a
// backward-nearest-neighbor lookup, not interpolation. nil means no
// snapshot exists at or before the boundary; callers must keep that
// distinct from a snapshot with price zero.
func (r *SnapshotRepository) GetAtOrBefore(ctx context.Context, assetKey string, asOf time.Time) (*models.PriceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM price_snapshots FINAL
		WHERE asset_key = ? AND ts <= ?
		ORDER BY ts DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, assetKey, asOf.UTC())
}

// GetSeries returns the snapshot series for an asset inside [from, to],
// ordered by timestamp ascending.
func (r *SnapshotRepository) GetSeries(ctx context.Context, assetKey string, from, to time.Time) ([]models.PriceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM price_snapshots FINAL
		WHERE asset_key = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, assetKey, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot series: %w", err)
	}
	defer rows.Close()

	series := make([]models.PriceSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, rows.Err()
}

func (r *SnapshotRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.PriceSnapshot, error) {
	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	s, err := scanSnapshot(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSnapshot(rows driver.Rows) (models.PriceSnapshot, error) {
	var (
		s                                     models.PriceSnapshot
		price, marketCap, volume, circ, total float64
	)
	err := rows.Scan(
		&s.AssetKey,
		&s.Timestamp,
		&price,
		&marketCap,
		&volume,
		&circ,
		&total,
	)
	if err != nil {
		return s, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	s.Price = decimal.NewFromFloat(price)
	s.MarketCap = decimal.NewFromFloat(marketCap)
	s.Volume24h = decimal.NewFromFloat(volume)
	s.CirculatingSupply = decimal.NewFromFloat(circ)
	s.TotalSupply = decimal.NewFromFloat(total)
	return s, nil
}
