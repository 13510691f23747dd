package indicators

import (
	"fmt"
	"slices"

	"github.com/rustyeddy/trendguard/market"
)

// StdDev is the rolling population standard deviation of closes.
type StdDev struct {
	period int
	closes window
}

func NewStdDev(period int) *StdDev {
	period = clampPeriod(period)
	return &StdDev{period: period, closes: newWindow(period)}
}

func (s *StdDev) Name() string        { return fmt.Sprintf("STDDEV(%d)", s.period) }
func (s *StdDev) Warmup() int         { return s.period }
func (s *StdDev) Reset()              { s.closes.reset() }
func (s *StdDev) Update(b market.Bar) { s.closes.push(b.Close) }
func (s *StdDev) Ready() bool         { return s.closes.full() }

func (s *StdDev) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.closes.stddev()
}

// Band is one Bollinger reading.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
	Valid  bool
}

// Bollinger computes middle = SMA(period) and upper/lower = middle ± k·σ
// with σ the population standard deviation over the same window.
type Bollinger struct {
	period int
	k      float64
	closes window
}

func NewBollinger(period int, k float64) *Bollinger {
	period = clampPeriod(period)
	return &Bollinger{period: period, k: k, closes: newWindow(period)}
}

func (bb *Bollinger) Name() string        { return fmt.Sprintf("BB(%d,%g)", bb.period, bb.k) }
func (bb *Bollinger) Warmup() int         { return bb.period }
func (bb *Bollinger) Reset()              { bb.closes.reset() }
func (bb *Bollinger) Update(b market.Bar) { bb.closes.push(b.Close) }
func (bb *Bollinger) Ready() bool         { return bb.closes.full() }

// Value returns the middle band.
func (bb *Bollinger) Value() float64 {
	if !bb.Ready() {
		return 0
	}
	return bb.closes.mean()
}

func (bb *Bollinger) Band() Band {
	if !bb.Ready() {
		return Band{}
	}
	mid := bb.closes.mean()
	width := bb.k * bb.closes.stddev()
	return Band{Upper: mid + width, Middle: mid, Lower: mid - width, Valid: true}
}

func BollingerValues(bars []market.Bar, period int, k float64) []Band {
	bb := NewBollinger(period, k)
	out := make([]Band, 0, len(bars))
	for _, b := range bars {
		bb.Update(b)
		out = append(out, bb.Band())
	}
	return slices.Clip(out)
}
