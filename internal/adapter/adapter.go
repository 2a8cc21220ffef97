package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// AssetAdapter is the uniform capability set the valuation services use
// for any holdable asset, regardless of where its prices come from.
type AssetAdapter interface {
	// Key returns the canonical asset key, e.g. "coin:bitcoin".
	Key() string

	// Kind returns the asset kind behind this adapter.
	Kind() types.AssetKind

	// DisplayName returns a human-readable name for the asset. It never
	// fails; assets without metadata resolve to "Unknown".
	DisplayName(ctx context.Context) string

	// LatestPrice returns the most recent known price, or nil when no
	// snapshot exists for the asset.
	LatestPrice(ctx context.Context) (*decimal.Decimal, error)

	// PriceAsOf returns the price from the nearest snapshot at or before
	// asOf. A nil price means no snapshot existed by that time, which is
	// distinct from a recorded price of zero.
	PriceAsOf(ctx context.Context, asOf time.Time) (*decimal.Decimal, error)

	// EarliestPrice returns the price from the first snapshot ever
	// recorded for the asset, or nil when none exist. It is the base for
	// the all-time window change.
	EarliestPrice(ctx context.Context) (*decimal.Decimal, error)
}

// SnapshotSource is the slice of snapshot storage the adapters need.
type SnapshotSource interface {
	GetLatest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error)
	GetEarliest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error)
	GetAtOrBefore(ctx context.Context, assetKey string, asOf time.Time) (*models.PriceSnapshot, error)
}

// NameSource resolves asset metadata to display names.
type NameSource interface {
	GetDisplayName(ctx context.Context, key string) string
}

// ErrUnsupportedKind indicates no adapter exists for an asset kind.
var ErrUnsupportedKind = fmt.Errorf("unsupported asset kind")

// ForAsset returns the adapter for an asset key and kind.
func ForAsset(key string, kind types.AssetKind, snapshots SnapshotSource, names NameSource) (AssetAdapter, error) {
	switch kind {
	case types.KindCoin:
		return NewCoinAdapter(key, snapshots, names), nil
	case types.KindDexPair:
		return NewDexPairAdapter(key, snapshots, names), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func priceFromSnapshot(snapshot *models.PriceSnapshot) *decimal.Decimal {
	if snapshot == nil {
		return nil
	}
	price := snapshot.Price
	return &price
}
