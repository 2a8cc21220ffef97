package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// DexPairAdapter serves DEX liquidity pair positions keyed like
// "dexpair:uniswap:weth-usdc". Prices come from the same snapshot
// stream as coins; only the naming differs when metadata is missing.
type DexPairAdapter struct {
	key       string
	snapshots SnapshotSource
	names     NameSource
}

func NewDexPairAdapter(key string, snapshots SnapshotSource, names NameSource) *DexPairAdapter {
	return &DexPairAdapter{key: key, snapshots: snapshots, names: names}
}

func (a *DexPairAdapter) Key() string { return a.key }

func (a *DexPairAdapter) Kind() types.AssetKind { return types.KindDexPair }

// DisplayName prefers registered metadata and falls back to a name
// derived from the pair key, e.g. "WETH/USDC".
func (a *DexPairAdapter) DisplayName(ctx context.Context) string {
	name := a.names.GetDisplayName(ctx, a.key)
	if name != models.UnknownAssetName {
		return name
	}
	if derived := pairNameFromKey(a.key); derived != "" {
		return derived
	}
	return models.UnknownAssetName
}

func (a *DexPairAdapter) LatestPrice(ctx context.Context) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetLatest(ctx, a.key)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}

func (a *DexPairAdapter) EarliestPrice(ctx context.Context) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetEarliest(ctx, a.key)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}

func (a *DexPairAdapter) PriceAsOf(ctx context.Context, asOf time.Time) (*decimal.Decimal, error) {
	snapshot, err := a.snapshots.GetAtOrBefore(ctx, a.key, asOf)
	if err != nil {
		return nil, err
	}
	return priceFromSnapshot(snapshot), nil
}

// pairNameFromKey extracts "WETH/USDC" from "dexpair:uniswap:weth-usdc".
// Returns "" when the key does not carry a recognizable pair segment.
func pairNameFromKey(key string) string {
	parts := strings.Split(key, ":")
	pair := parts[len(parts)-1]
	tokens := strings.Split(pair, "-")
	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		return ""
	}
	return strings.ToUpper(tokens[0]) + "/" + strings.ToUpper(tokens[1])
}
