package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
)

// Summary is the whole-portfolio rollup across all valuated positions.
type Summary struct {
	TotalValueNow        decimal.Decimal `json:"totalValueNow"`
	TotalInvestment      decimal.Decimal `json:"totalInvestment"`
	AllTimeProfit        decimal.Decimal `json:"allTimeProfit"`
	AllTimeProfitPercent decimal.Decimal `json:"allTimeProfitPercent"`
	NetChange24h         decimal.Decimal `json:"netChange24h"`
	NetChange24hPercent  decimal.Decimal `json:"netChange24hPercent"`
}

// Aggregate rolls per-asset positions into portfolio totals. Total
// investment is capital currently deployed at cost (quantity * average
// buy price per position); all-time profit is the spread to current
// value. The 24h fields are left zero; see NetChange24h, which works off
// the transaction stream rather than positions.
func Aggregate(positions []Position) Summary {
	var s Summary
	for _, p := range positions {
		s.TotalValueNow = s.TotalValueNow.Add(p.CurrentValue)
		s.TotalInvestment = s.TotalInvestment.Add(p.QuantityHeld.Mul(p.WeightedAvgBuyPrice))
	}
	s.AllTimeProfit = s.TotalValueNow.Sub(s.TotalInvestment)
	if s.TotalInvestment.IsPositive() {
		s.AllTimeProfitPercent = s.AllTimeProfit.Div(s.TotalInvestment).Mul(hundred)
	}
	return s
}

// NetChange24h measures cash-flow impact over the trailing 24 hours:
// buy totals minus sell totals for transactions inside the window. This
// is deliberately distinct from price-driven unrealized P&L and the two
// must never be conflated. The percent is relative to total investment,
// 0 when nothing is invested.
func NetChange24h(transactions []models.Transaction, totalInvestment decimal.Decimal, now time.Time) (amount, percent decimal.Decimal) {
	cutoff := now.Add(-24 * time.Hour)
	for _, tx := range transactions {
		if tx.Timestamp.Before(cutoff) || tx.Timestamp.After(now) {
			continue
		}
		if tx.IsBuy() {
			amount = amount.Add(tx.EffectiveTotal())
		} else {
			amount = amount.Sub(tx.EffectiveTotal())
		}
	}
	if totalInvestment.IsPositive() {
		percent = amount.Div(totalInvestment).Mul(hundred)
	}
	return amount, percent
}
