package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot represents one sampled market observation for an asset.
// Snapshots are append-only; re-ingestion of the same (assetKey, timestamp)
// key is idempotent and never rewrites finalized values.
type PriceSnapshot struct {
	AssetKey          string          `json:"assetKey" db:"asset_key"`
	Timestamp         time.Time       `json:"timestamp" db:"ts"`
	Price             decimal.Decimal `json:"price" db:"price"`
	MarketCap         decimal.Decimal `json:"marketCap" db:"market_cap"`
	Volume24h         decimal.Decimal `json:"volume24h" db:"volume_24h"`
	CirculatingSupply decimal.Decimal `json:"circulatingSupply" db:"circulating_supply"`
	TotalSupply       decimal.Decimal `json:"totalSupply" db:"total_supply"`
}

// SnapshotField selects which snapshot metric a chart series is built from.
type SnapshotField string

const (
	FieldPrice     SnapshotField = "price"
	FieldMarketCap SnapshotField = "market_cap"
	FieldVolume    SnapshotField = "volume_24h"
)

// Value returns the metric selected by field, defaulting to price.
func (s *PriceSnapshot) Value(field SnapshotField) decimal.Decimal {
	switch field {
	case FieldMarketCap:
		return s.MarketCap
	case FieldVolume:
		return s.Volume24h
	default:
		return s.Price
	}
}
