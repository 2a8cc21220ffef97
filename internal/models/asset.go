package models

import (
	"time"

	"github.com/cryptofolio/internal/types"
)

// Asset represents metadata for a tracked coin or DEX pair. The key is the
// coin's market id for coins and the pool contract address for DEX pairs.
type Asset struct {
	Key       string          `json:"key" db:"key"`
	Kind      types.AssetKind `json:"kind" db:"kind"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Name      string          `json:"name" db:"name"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// UnknownAssetName is the placeholder used when no metadata mapping exists.
const UnknownAssetName = "Unknown"
