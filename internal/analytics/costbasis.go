package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
)

// CostBasis is the derived acquisition cost of a single asset position.
type CostBasis struct {
	QuantityHeld        decimal.Decimal `json:"quantityHeld"`
	WeightedAvgBuyPrice decimal.Decimal `json:"weightedAvgBuyPrice"`
	TotalCost           decimal.Decimal `json:"totalCost"`
}

// ComputeCostBasis derives the weighted-average buy price and quantity
// bought from the buy side of a single asset's transaction history:
//
//	weightedAvgBuyPrice = sum(price_i * qty_i) / sum(qty_i)
//
// Sell transactions in the input are ignored; reconciliation of sells
// against holdings is the ledger's responsibility. With no buys, or a
// zero total quantity, every field is zero and no division happens.
func ComputeCostBasis(transactions []models.Transaction) CostBasis {
	var quantity, cost decimal.Decimal

	for _, tx := range transactions {
		if !tx.IsBuy() {
			continue
		}
		quantity = quantity.Add(tx.Quantity)
		cost = cost.Add(tx.PricePerUnit.Mul(tx.Quantity))
	}

	basis := CostBasis{
		QuantityHeld: quantity,
		TotalCost:    cost,
	}
	if quantity.IsPositive() {
		basis.WeightedAvgBuyPrice = cost.Div(quantity)
	}
	return basis
}
