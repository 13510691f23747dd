package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendguard/market"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(b market.Bar, prevClose float64) float64 {
	highLow := b.High - b.Low
	highClose := math.Abs(b.High - prevClose)
	lowClose := math.Abs(b.Low - prevClose)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR is the simple rolling mean of true range over period bars. The first
// bar only seeds the previous close, so the first period bars are undefined.
type ATR struct {
	period    int
	ranges    window
	prevClose float64
	havePrev  bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	period = clampPeriod(period)
	return &ATR{period: period, ranges: newWindow(period)}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup is period+1 because true range needs a previous close.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.ranges.reset()
	a.prevClose = 0
	a.havePrev = false
}

func (a *ATR) Update(b market.Bar) {
	if a.havePrev {
		a.ranges.push(TrueRange(b, a.prevClose))
	}
	a.prevClose = b.Close
	a.havePrev = true
}

func (a *ATR) Ready() bool { return a.ranges.full() }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.ranges.mean()
}
