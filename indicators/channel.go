package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendguard/market"
)

// Donchian tracks the highest high and lowest low of the last period bars.
// Value returns the channel midpoint.
type Donchian struct {
	period int
	highs  window
	lows   window
}

func NewDonchian(period int) *Donchian {
	period = clampPeriod(period)
	return &Donchian{period: period, highs: newWindow(period), lows: newWindow(period)}
}

func (d *Donchian) Name() string { return fmt.Sprintf("DONCHIAN(%d)", d.period) }

func (d *Donchian) Warmup() int { return d.period }

func (d *Donchian) Reset() {
	d.highs.reset()
	d.lows.reset()
}

func (d *Donchian) Update(b market.Bar) {
	d.highs.push(b.High)
	d.lows.push(b.Low)
}

func (d *Donchian) Ready() bool { return d.highs.full() }

func (d *Donchian) Upper() float64 { return d.highs.max() }

func (d *Donchian) Lower() float64 { return d.lows.min() }

func (d *Donchian) Value() float64 {
	if !d.Ready() {
		return 0
	}
	return (d.Upper() + d.Lower()) / 2
}

// Stochastic is the %K oscillator: where the close sits inside the
// high-low range of the last period bars, 0..100. A range of zero reads 50.
type Stochastic struct {
	period int
	highs  window
	lows   window
	close  float64
}

func NewStochastic(period int) *Stochastic {
	period = clampPeriod(period)
	return &Stochastic{period: period, highs: newWindow(period), lows: newWindow(period)}
}

func (s *Stochastic) Name() string { return fmt.Sprintf("STOCH(%d)", s.period) }

func (s *Stochastic) Warmup() int { return s.period }

func (s *Stochastic) Reset() {
	s.highs.reset()
	s.lows.reset()
	s.close = 0
}

func (s *Stochastic) Update(b market.Bar) {
	s.highs.push(b.High)
	s.lows.push(b.Low)
	s.close = b.Close
}

func (s *Stochastic) Ready() bool { return s.highs.full() }

func (s *Stochastic) Value() float64 {
	if !s.Ready() {
		return 0
	}
	hh, ll := s.highs.max(), s.lows.min()
	if hh <= ll {
		return 50
	}
	k := 100 * (s.close - ll) / (hh - ll)
	return min(max(k, 0), 100)
}
