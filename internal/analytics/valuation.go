package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Valuation holds the unrealized profit/loss of one position. Amount and
// percent always carry the same sign: positive is gain, negative is loss.
type Valuation struct {
	PnLAmount  decimal.Decimal `json:"pnlAmount"`
	PnLPercent decimal.Decimal `json:"pnlPercent"`
}

// ValuatePosition computes unrealized P&L for a position. When the ledger
// supplies an authoritative currentValue it is used directly (it may
// already reflect live pricing); otherwise the value is derived from
// quantityHeld * currentPrice. The percent denominator is the cost
// (quantityHeld * avgBuyPrice); a zero denominator yields 0 percent,
// never a division error.
func ValuatePosition(quantityHeld, currentPrice, avgBuyPrice decimal.Decimal, currentValue *decimal.Decimal) Valuation {
	value := quantityHeld.Mul(currentPrice)
	if currentValue != nil {
		value = *currentValue
	}
	cost := quantityHeld.Mul(avgBuyPrice)

	v := Valuation{PnLAmount: value.Sub(cost)}
	if avgBuyPrice.IsPositive() && quantityHeld.IsPositive() {
		v.PnLPercent = v.PnLAmount.Div(cost).Mul(hundred)
	}
	return v
}

// PercentChange computes the percent move from thenPrice to nowPrice.
// A nil or zero base means there is nothing to compare against and the
// result is nil; callers render that as "N/A", never as 0%.
func PercentChange(nowPrice decimal.Decimal, thenPrice *decimal.Decimal) *decimal.Decimal {
	if thenPrice == nil || thenPrice.IsZero() {
		return nil
	}
	change := nowPrice.Sub(*thenPrice).Div(*thenPrice).Mul(hundred)
	return &change
}

// FormatSignedPercent renders a percent value with an explicit sign and
// two decimal places ("+12.34%", "-5.00%"). Zero formats as "+0.00%".
// The numeric value keeps its sign; this is a presentation form only.
func FormatSignedPercent(p decimal.Decimal) string {
	sign := "+"
	if p.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s%s%%", sign, p.Abs().StringFixed(2))
}

// Position is a fully valuated holding of one asset, recomputed on demand
// from the ledger and never persisted. WindowChanges carries the percent
// price move per lookback window; nil entries mean no snapshot existed at
// or before the window boundary.
type Position struct {
	PortfolioID         string                               `json:"portfolioId"`
	AssetKey            string                               `json:"assetKey"`
	AssetKind           types.AssetKind                      `json:"assetKind"`
	DisplayName         string                               `json:"displayName"`
	QuantityHeld        decimal.Decimal                      `json:"quantityHeld"`
	WeightedAvgBuyPrice decimal.Decimal                      `json:"weightedAvgBuyPrice"`
	CurrentPrice        decimal.Decimal                      `json:"currentPrice"`
	CurrentValue        decimal.Decimal                      `json:"currentValue"`
	PnLAmount           decimal.Decimal                      `json:"pnlAmount"`
	PnLPercent          decimal.Decimal                      `json:"pnlPercent"`
	PnLPercentDisplay   string                               `json:"pnlPercentDisplay"`
	WindowChanges       map[types.TimeFrame]*decimal.Decimal `json:"windowChanges,omitempty"`
}
