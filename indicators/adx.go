package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendguard/market"
)

// ADX is Wilder's Average Directional Index.
//
// Warmup:
//  1. period deltas build the initial smoothed TR, +DM and -DM
//  2. period DX values seed the first ADX as their mean
//
// The first bar only seeds the previous high, low and close, so ADX is
// defined from the 2*period-th bar on.
type ADX struct {
	n int

	prev    market.Bar
	hasPrev bool
	periods int

	sumTR, sumPlusDM, sumMinusDM float64
	smTR, smPlusDM, smMinusDM    float64

	plusDI, minusDI float64
	dxSum           float64
	dxCount         int

	adx   float64
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{n: clampPeriod(period)}
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.n) }

func (a *ADX) Warmup() int { return 2 * a.n }

func (a *ADX) Reset() { *a = ADX{n: a.n} }

func (a *ADX) Ready() bool { return a.ready }

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

// PlusDI and MinusDI are defined once the first period deltas are in.
func (a *ADX) PlusDI() float64  { return a.plusDI }
func (a *ADX) MinusDI() float64 { return a.minusDI }

// DIReady reports whether PlusDI and MinusDI are meaningful.
func (a *ADX) DIReady() bool { return a.periods >= a.n }

func (a *ADX) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := TrueRange(b, a.prev.Close)
	upMove := b.High - a.prev.High
	downMove := a.prev.Low - b.Low

	var plusDM, minusDM float64
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	a.prev = b
	a.periods++

	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM
		if a.periods < a.n {
			return
		}
		a.smTR, a.smPlusDM, a.smMinusDM = a.sumTR, a.sumPlusDM, a.sumMinusDM
	} else {
		// smoothed = prior - prior/N + current
		nf := float64(a.n)
		a.smTR = a.smTR - a.smTR/nf + tr
		a.smPlusDM = a.smPlusDM - a.smPlusDM/nf + plusDM
		a.smMinusDM = a.smMinusDM - a.smMinusDM/nf + minusDM
	}

	a.plusDI, a.minusDI = directional(a.smPlusDM, a.smMinusDM, a.smTR)
	dx := directionalIndex(a.plusDI, a.minusDI)

	if !a.ready {
		a.dxSum += dx
		a.dxCount++
		if a.dxCount >= a.n {
			a.adx = a.dxSum / float64(a.n)
			a.ready = true
		}
		return
	}
	a.adx = (a.adx*float64(a.n-1) + dx) / float64(a.n)
}

func directional(smPlusDM, smMinusDM, smTR float64) (plusDI, minusDI float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100 * smPlusDM / smTR, 100 * smMinusDM / smTR
}

func directionalIndex(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}
