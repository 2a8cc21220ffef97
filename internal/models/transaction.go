package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/types"
)

// Transaction represents a single buy or sell entry in a portfolio ledger.
// Transactions are immutable once created; the only mutation is a hard delete.
type Transaction struct {
	ID           string                `json:"id" db:"id"`
	PortfolioID  string                `json:"portfolioId" db:"portfolio_id"`
	AssetKey     string                `json:"assetKey" db:"asset_key"`
	AssetKind    types.AssetKind       `json:"assetKind" db:"asset_kind"`
	Type         types.TransactionType `json:"type" db:"type"`
	Quantity     decimal.Decimal       `json:"quantity" db:"quantity"`
	PricePerUnit decimal.Decimal       `json:"pricePerUnit" db:"price_per_unit"`
	TotalValue   decimal.Decimal       `json:"totalValue" db:"total_value"`
	Timestamp    time.Time             `json:"timestamp" db:"ts"`
	CreatedAt    time.Time             `json:"createdAt" db:"created_at"`
}

// totalValueTolerance bounds the accepted drift between the stored total
// and quantity*pricePerUnit before the stored value is considered stale.
var totalValueTolerance = decimal.New(1, -8) // 1e-8

// EffectiveTotal returns the transaction total, recomputed from quantity and
// unit price when the stored total has drifted beyond tolerance. The stored
// column is kept for display but the product is authoritative.
func (t *Transaction) EffectiveTotal() decimal.Decimal {
	product := t.Quantity.Mul(t.PricePerUnit)
	if t.TotalValue.Sub(product).Abs().GreaterThan(totalValueTolerance) {
		return product
	}
	return t.TotalValue
}

// IsBuy reports whether the transaction is on the buy side.
func (t *Transaction) IsBuy() bool {
	return t.Type == types.TypeBuy
}
