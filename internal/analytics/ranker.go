package analytics

import (
	"github.com/cryptofolio/internal/models"
)

// NameResolver maps an asset key to a human-readable display name.
// Implementations fall back to models.UnknownAssetName for unmapped keys.
type NameResolver func(assetKey string) string

// Performer is a ranked position with its resolved display name.
type Performer struct {
	Position
}

// BestPerformer selects the position with the maximum absolute P&L
// amount (not percent). Ties keep the first position in input order.
// An empty input returns ok=false; callers treat the empty portfolio as
// a first-class no-data outcome, not an error.
func BestPerformer(positions []Position, resolve NameResolver) (Performer, bool) {
	return pick(positions, resolve, func(candidate, current Position) bool {
		return candidate.PnLAmount.GreaterThan(current.PnLAmount)
	})
}

// WorstPerformer selects the position with the minimum absolute P&L
// amount, with the same stable tie-break and empty handling as
// BestPerformer.
func WorstPerformer(positions []Position, resolve NameResolver) (Performer, bool) {
	return pick(positions, resolve, func(candidate, current Position) bool {
		return candidate.PnLAmount.LessThan(current.PnLAmount)
	})
}

func pick(positions []Position, resolve NameResolver, better func(candidate, current Position) bool) (Performer, bool) {
	if len(positions) == 0 {
		return Performer{}, false
	}

	chosen := positions[0]
	for _, p := range positions[1:] {
		if better(p, chosen) {
			chosen = p
		}
	}

	name := chosen.DisplayName
	if resolve != nil {
		name = resolve(chosen.AssetKey)
	}
	if name == "" {
		name = models.UnknownAssetName
	}
	chosen.DisplayName = name

	return Performer{Position: chosen}, true
}
