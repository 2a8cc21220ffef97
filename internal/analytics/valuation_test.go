package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestValuatePosition_ZeroDivisionSafety(t *testing.T) {
	v := ValuatePosition(decimal.Zero, dec(123.45), decimal.Zero, nil)

	assert.True(t, v.PnLAmount.IsZero(), "PnLAmount should be zero")
	assert.True(t, v.PnLPercent.IsZero(), "PnLPercent must default to 0, never NaN or a panic")
}

func TestValuatePosition_SignConsistency(t *testing.T) {
	// currentValue=80, quantityHeld=10, avgBuyPrice=10 (cost 100) => -20 / -20%
	v := ValuatePosition(dec(10), decimal.Zero, dec(10), decPtr(80))

	assert.True(t, v.PnLAmount.Equal(dec(-20)), "PnLAmount = %s, want -20", v.PnLAmount)
	assert.True(t, v.PnLPercent.Equal(dec(-20)), "PnLPercent = %s, want -20", v.PnLPercent)
}

func TestValuatePosition_DerivesValueFromPrice(t *testing.T) {
	v := ValuatePosition(dec(2), dec(150), dec(100), nil)

	assert.True(t, v.PnLAmount.Equal(dec(100)), "PnLAmount = %s, want 100", v.PnLAmount)
	assert.True(t, v.PnLPercent.Equal(dec(50)), "PnLPercent = %s, want 50", v.PnLPercent)
}

func TestValuatePosition_LedgerValueWins(t *testing.T) {
	// The ledger's currentValue may already carry live pricing; when
	// supplied it overrides quantity*currentPrice.
	v := ValuatePosition(dec(2), dec(150), dec(100), decPtr(250))

	assert.True(t, v.PnLAmount.Equal(dec(50)), "PnLAmount = %s, want 50", v.PnLAmount)
}

func TestPercentChange(t *testing.T) {
	t.Run("normal move", func(t *testing.T) {
		change := PercentChange(dec(110), decPtr(100))
		require.NotNil(t, change)
		assert.True(t, change.Equal(dec(10)), "change = %s, want 10", change)
	})

	t.Run("missing base is nil, not zero", func(t *testing.T) {
		assert.Nil(t, PercentChange(dec(110), nil))
	})

	t.Run("zero base is nil, not zero", func(t *testing.T) {
		assert.Nil(t, PercentChange(dec(110), decPtr(0)))
	})

	t.Run("flat price is a computed zero", func(t *testing.T) {
		change := PercentChange(dec(100), decPtr(100))
		require.NotNil(t, change, "a computed 0%% must stay distinguishable from no data")
		assert.True(t, change.IsZero())
	})
}

func TestFormatSignedPercent(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{12.337, "+12.34%"},
		{-5, "-5.00%"},
		{0, "+0.00%"},
		{-0.004, "-0.00%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSignedPercent(dec(tt.value)))
	}
}
