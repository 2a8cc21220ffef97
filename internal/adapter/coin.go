package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/types"
)

// CoinAdapter serves plain coins and tokens tracked by a single market
// snapshot stream, e.g. "coin:bitcoin".
type CoinAdapter struct {
	key       string
	snapshots SnapshotSource
	names     NameSource
}

func NewCoinAdapter(key string, snapshots SnapshotSource, names NameSource) *CoinAdapter {
	return &CoinAdapter{key: key, snapshots: snapshots, names: names}
}

func (a *CoinAdapter) Key() string { return a.key }

func (a *CoinAdapter) Kind() types.AssetKind { return types.KindCoin }

func (a *CoinAdapter) DisplayName(ctx context.Context) string {
	return a.names.GetDisplayName(ctx, a.key)
}

func (a *CoinAdapter) LatestPrice(ctx context.Context) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetLatest(ctx, a.key)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}

func (a *CoinAdapter) EarliestPrice(ctx context.Context) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetEarliest(ctx, a.key)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}

func (a *CoinAdapter) PriceAsOf(ctx context.Context, asOf time.Time) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetAtOrBefore(ctx, a.key, asOf)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}
