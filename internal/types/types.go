// Package types provides common type definitions for the portfolio analytics service.
package types

import "time"

// TransactionType represents the side of a ledger entry
type TransactionType string

const (
	// TypeBuy represents a purchase of an asset
	TypeBuy TransactionType = "buy"
	// TypeSell represents a disposal of an asset
	TypeSell TransactionType = "sell"
)

// AssetKind represents the class of a tracked asset
type AssetKind string

const (
	// KindCoin represents a listed coin identified by its market id
	KindCoin AssetKind = "coin"
	// KindDexPair represents a DEX trading pair identified by contract address
	KindDexPair AssetKind = "dexpair"
)

// TimeFrame represents a lookback window for price changes and charts
type TimeFrame string

const (
	Frame1H  TimeFrame = "1h"
	Frame24H TimeFrame = "24h"
	Frame7D  TimeFrame = "7d"
	Frame30D TimeFrame = "30d"
	Frame90D TimeFrame = "90d"
	Frame1Y  TimeFrame = "1y"
	FrameAll TimeFrame = "all"
)

// AllFrames lists every supported lookback window, shortest first.
var AllFrames = []TimeFrame{Frame1H, Frame24H, Frame7D, Frame30D, Frame90D, Frame1Y, FrameAll}

// Duration returns the lookback duration of the frame. FrameAll reports
// zero duration together with ok=false: there is no lower bound to apply.
func (f TimeFrame) Duration() (time.Duration, bool) {
	switch f {
	case Frame1H:
		return time.Hour, true
	case Frame24H:
		return 24 * time.Hour, true
	case Frame7D:
		return 7 * 24 * time.Hour, true
	case Frame30D:
		return 30 * 24 * time.Hour, true
	case Frame90D:
		return 90 * 24 * time.Hour, true
	case Frame1Y:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ParseTimeFrame parses a string into a TimeFrame, defaulting to FrameAll.
func ParseTimeFrame(s string) TimeFrame {
	switch TimeFrame(s) {
	case Frame1H, Frame24H, Frame7D, Frame30D, Frame90D, Frame1Y, FrameAll:
		return TimeFrame(s)
	default:
		return FrameAll
	}
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
