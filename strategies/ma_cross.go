package strategies

import "github.com/rustyeddy/trendguard/indicators"

// MACrossover trades the fast/slow moving-average cross.
//   - Bull cross: fast-slow goes from <=0 to >0
//   - Bear cross: fast-slow goes from >=0 to <0
//
// With MinADX set a cross only counts while ADX is defined and at least
// MinADX. RequireDI additionally needs +DI above -DI for a buy and the
// opposite for a sell.
type MACrossover struct {
	MinADX    float64
	RequireDI bool
}

func (MACrossover) Name() string { return "ma_crossover" }

func (x MACrossover) Evaluate(cur, prev indicators.Snapshot) Signal {
	if !cur.FastMA.Valid || !cur.SlowMA.Valid || !prev.FastMA.Valid || !prev.SlowMA.Valid {
		return Hold
	}

	diff := cur.FastMA.V - cur.SlowMA.V
	lastDiff := prev.FastMA.V - prev.SlowMA.V

	var sig Signal
	switch {
	case diff > 0 && lastDiff <= 0:
		sig = Buy
	case diff < 0 && lastDiff >= 0:
		sig = Sell
	default:
		return Hold
	}

	// trend too weak
	if x.MinADX > 0 && (!cur.ADX.Valid || cur.ADX.V < x.MinADX) {
		return Hold
	}
	if x.RequireDI {
		if !cur.PlusDI.Valid || !cur.MinusDI.Valid {
			return Hold
		}
		if sig == Buy && !(cur.PlusDI.V > cur.MinusDI.V) {
			return Hold
		}
		if sig == Sell && !(cur.MinusDI.V > cur.PlusDI.V) {
			return Hold
		}
	}
	return sig
}
