// Package indicators provides technical analysis indicators for trading.
//
// Every indicator is a streaming state machine fed one closed bar at a time,
// so live, replay and backtest runs share one code path. Rolling statistics
// use the population form (divide by N) everywhere; callers must not mix in
// sample statistics or backtest results stop being reproducible.
package indicators

import (
	"iter"
	"math"
	"slices"

	"github.com/rustyeddy/trendguard/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// Value is an indicator reading. Valid is false inside the warm-up window;
// an invalid Value is absent, not zero.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps a defined reading.
func Some(v float64) Value { return Value{V: v, Valid: true} }

func current(ind Indicator) Value {
	if !ind.Ready() {
		return Value{}
	}
	return Some(ind.Value())
}

// Series lazily feeds bars through ind and yields one Value per bar, with
// leading invalid entries for the warm-up window. ind is reset first.
func Series(ind Indicator, bars []market.Bar) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		ind.Reset()
		for _, b := range bars {
			ind.Update(b)
			if !yield(current(ind)) {
				return
			}
		}
	}
}

func SMAValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewSMA(period), bars))
}

func EMAValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewEMA(period), bars))
}

func ATRValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewATR(period), bars))
}

func RSIValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewRSI(period), bars))
}

func StdDevValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewStdDev(period), bars))
}

func MACDValues(bars []market.Bar, fast, slow, signal int) []Value {
	return slices.Collect(Series(NewMACD(fast, slow, signal), bars))
}

func StochasticValues(bars []market.Bar, period int) []Value {
	return slices.Collect(Series(NewStochastic(period), bars))
}

// window keeps the last n samples in arrival order.
type window struct {
	n    int
	vals []float64
}

func newWindow(n int) window {
	if n < 1 {
		n = 1
	}
	return window{n: n, vals: make([]float64, 0, n)}
}

func (w *window) push(v float64) {
	w.vals = append(w.vals, v)
	if len(w.vals) > w.n {
		w.vals = w.vals[1:]
	}
}

func (w *window) full() bool { return len(w.vals) >= w.n }

func (w *window) reset() { w.vals = w.vals[:0] }

func (w *window) mean() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.vals {
		sum += v
	}
	return sum / float64(len(w.vals))
}

func (w *window) max() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	m := w.vals[0]
	for _, v := range w.vals[1:] {
		m = math.Max(m, v)
	}
	return m
}

func (w *window) min() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	m := w.vals[0]
	for _, v := range w.vals[1:] {
		m = math.Min(m, v)
	}
	return m
}

// stddev is the population standard deviation around mean, two-pass.
func (w *window) stddev() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	m := w.mean()
	ss := 0.0
	for _, v := range w.vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(w.vals)))
}

func clampPeriod(p int) int {
	if p < 1 {
		return 1
	}
	return p
}
