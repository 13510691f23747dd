package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendguard/market"
)

// SMA is a streaming simple moving average of closes.
type SMA struct {
	period int
	closes window
}

// NewSMA creates a new Simple Moving Average indicator with the given period
func NewSMA(period int) *SMA {
	period = clampPeriod(period)
	return &SMA{period: period, closes: newWindow(period)}
}

func (m *SMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }

func (m *SMA) Warmup() int { return m.period }

func (m *SMA) Reset() { m.closes.reset() }

func (m *SMA) Update(b market.Bar) { m.closes.push(b.Close) }

func (m *SMA) Ready() bool { return m.closes.full() }

func (m *SMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.closes.mean()
}

// EMA is a streaming exponential moving average seeded with the SMA of the
// first period closes.
type EMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *EMA {
	period = clampPeriod(period)
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *EMA) Warmup() int { return e.period }

func (e *EMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EMA) Update(b market.Bar) {
	if e.count < e.period {
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (b.Close-e.ema)*e.multiplier + e.ema
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
