package risk

import "math"

// HedgeFraction returns the fraction of the highest tier whose threshold the
// loss ratio has reached, or 0 below the first tier. Tier order does not
// matter.
func HedgeFraction(tiers []HedgeTier, lossRatio float64) float64 {
	var frac, best float64
	for _, t := range tiers {
		if lossRatio >= t.Threshold && t.Threshold >= best {
			best = t.Threshold
			frac = t.Fraction
		}
	}
	return frac
}

// MaxHedgeFraction is the fraction of the top tier, the most a position can
// be hedged.
func MaxHedgeFraction(tiers []HedgeTier) float64 {
	var frac float64
	for _, t := range tiers {
		frac = max(frac, t.Fraction)
	}
	return frac
}

type HedgeTarget struct {
	Asset string
	Qty   float64
}

// HedgeTargets splits the tier fraction of |positionQty| equally across the
// hedge assets, in the order given, and rounds each leg down to whole units.
// Assets are chosen deterministically: every asset gets a leg. All targets
// are zero when no tier is reached, so hedges unwind as the loss recovers.
func HedgeTargets(tiers []HedgeTier, assets []string, positionQty, lossRatio float64) []HedgeTarget {
	if len(assets) == 0 {
		return nil
	}
	total := HedgeFraction(tiers, lossRatio) * math.Abs(positionQty)
	each := math.Floor(total/float64(len(assets)) + 1e-9)

	out := make([]HedgeTarget, len(assets))
	for i, a := range assets {
		out[i] = HedgeTarget{Asset: a, Qty: each}
	}
	return out
}
