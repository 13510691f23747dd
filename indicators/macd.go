package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendguard/market"
)

// MACD is the fast EMA minus the slow EMA of closes, with a signal line that
// is an EMA of the MACD line itself. Value returns the MACD line.
type MACD struct {
	fastN, slowN, signalN int

	fast   *EMA
	slow   *EMA
	signal *EMA
	line   float64
}

func NewMACD(fast, slow, signal int) *MACD {
	fast, slow, signal = clampPeriod(fast), clampPeriod(slow), clampPeriod(signal)
	return &MACD{
		fastN: fast, slowN: slow, signalN: signal,
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fastN, m.slowN, m.signalN)
}

func (m *MACD) Warmup() int { return max(m.fastN, m.slowN) + m.signalN - 1 }

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.line = 0
}

func (m *MACD) Update(b market.Bar) {
	m.fast.Update(b)
	m.slow.Update(b)
	if !m.fast.Ready() || !m.slow.Ready() {
		return
	}
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(market.Bar{Time: b.Time, Close: m.line})
}

func (m *MACD) Ready() bool { return m.signal.Ready() }

func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line
}

// Signal returns the signal line, or 0 before Ready.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Histogram is the MACD line minus the signal line.
func (m *MACD) Histogram() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line - m.signal.Value()
}
