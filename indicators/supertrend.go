package indicators

import (
	"math"

	"github.com/rustyeddy/trendguard/market"
)

// Direction is the Supertrend trend state.
type Direction int8

const (
	Down Direction = -1
	Up   Direction = +1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	}
	return "NONE"
}

// SupertrendState is the finalized band pair and direction for one bar.
// Close is the bar's close, carried so the next step can compare against it.
type SupertrendState struct {
	Upper     float64
	Lower     float64
	Direction Direction
	Close     float64
}

// StepSupertrend computes the state for bar b from the previous bar's state.
// prev is nil for the first bar that has a defined ATR.
//
//	basicUpper = mid + m·atr, basicLower = mid - m·atr
//	upper = max(basicUpper, prev.Upper) if prev.Close > prev.Upper, else basicUpper
//	lower = min(basicLower, prev.Lower) if prev.Close < prev.Lower, else basicLower
//	direction = UP if close > lower, else DOWN
func StepSupertrend(b market.Bar, atr, multiplier float64, prev *SupertrendState) SupertrendState {
	mid := b.Mid()
	basicUpper := mid + multiplier*atr
	basicLower := mid - multiplier*atr

	upper, lower := basicUpper, basicLower
	if prev != nil {
		if prev.Close > prev.Upper {
			upper = math.Max(basicUpper, prev.Upper)
		}
		if prev.Close < prev.Lower {
			lower = math.Min(basicLower, prev.Lower)
		}
	}

	dir := Down
	if b.Close > lower {
		dir = Up
	}
	return SupertrendState{Upper: upper, Lower: lower, Direction: dir, Close: b.Close}
}

// Supertrend carries SupertrendState from bar to bar. It does not own an ATR;
// the caller passes the current ATR into Step once it is defined.
type Supertrend struct {
	multiplier float64

	state SupertrendState
	prev  SupertrendState
	count int
}

func NewSupertrend(multiplier float64) *Supertrend {
	return &Supertrend{multiplier: multiplier}
}

func (s *Supertrend) Multiplier() float64 { return s.multiplier }

// Step advances the tracker by one bar and returns the new state.
func (s *Supertrend) Step(b market.Bar, atr float64) SupertrendState {
	var prev *SupertrendState
	if s.count > 0 {
		p := s.state
		prev = &p
	}
	next := StepSupertrend(b, atr, s.multiplier, prev)
	s.prev = s.state
	s.state = next
	s.count++
	return next
}

// State returns the latest state; ok is false before the first Step.
func (s *Supertrend) State() (SupertrendState, bool) {
	return s.state, s.count > 0
}

// Previous returns the state one bar back; ok is false until two steps ran.
func (s *Supertrend) Previous() (SupertrendState, bool) {
	return s.prev, s.count > 1
}

// Restore injects st as the latest state, e.g. when resuming a live session.
func (s *Supertrend) Restore(st SupertrendState) {
	s.prev = SupertrendState{}
	s.state = st
	s.count = 1
}

func (s *Supertrend) Reset() {
	s.state = SupertrendState{}
	s.prev = SupertrendState{}
	s.count = 0
}
