package strategies

import "github.com/rustyeddy/trendguard/indicators"

// Breakout buys a close above the previous bar's Donchian upper band and
// sells a close below its lower band. The previous channel never includes
// the bar being judged.
//
// ConfirmVolume needs volume above its moving average on the breakout bar.
// ConfirmMACD needs the MACD histogram on the side of the breakout.
type Breakout struct {
	ConfirmVolume bool
	ConfirmMACD   bool
}

func (Breakout) Name() string { return "breakout" }

func (r Breakout) Evaluate(cur, prev indicators.Snapshot) Signal {
	if !prev.DonchianUpper.Valid || !prev.DonchianLower.Valid {
		return Hold
	}

	var sig Signal
	switch {
	case cur.Close > prev.DonchianUpper.V:
		sig = Buy
	case cur.Close < prev.DonchianLower.V:
		sig = Sell
	default:
		return Hold
	}

	if r.ConfirmVolume && (!cur.VolumeAvg.Valid || !(cur.Volume > cur.VolumeAvg.V)) {
		return Hold
	}
	if r.ConfirmMACD {
		if !cur.MACDHist.Valid {
			return Hold
		}
		if (sig == Buy && cur.MACDHist.V <= 0) || (sig == Sell && cur.MACDHist.V >= 0) {
			return Hold
		}
	}
	return sig
}
