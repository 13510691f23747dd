package strategies

import (
	"fmt"

	"github.com/rustyeddy/trendguard/indicators"
)

// FlipRSIBB buys a Supertrend flip to UP confirmed by an oversold RSI and a
// close below the lower Bollinger band; sells the mirror image.
type FlipRSIBB struct {
	Oversold   float64
	Overbought float64
}

func (r FlipRSIBB) Name() string {
	return fmt.Sprintf("flip_rsi_bb(%g/%g)", r.Oversold, r.Overbought)
}

func (r FlipRSIBB) Evaluate(cur, prev indicators.Snapshot) Signal {
	if !cur.Ready() || !prev.TrendValid {
		return Hold
	}

	flipUp := cur.Trend.Direction == indicators.Up && prev.Trend.Direction == indicators.Down
	flipDown := cur.Trend.Direction == indicators.Down && prev.Trend.Direction == indicators.Up

	switch {
	case flipUp && cur.RSI.V < r.Oversold && cur.Close < cur.BBLower.V:
		return Buy
	case flipDown && cur.RSI.V > r.Overbought && cur.Close > cur.BBUpper.V:
		return Sell
	}
	return Hold
}
