package risk

import (
	"fmt"
	"time"
)

type TripReason string

const (
	TripDrawdown  TripReason = "MaxDrawdown"
	TripDailyLoss TripReason = "MaxDailyLoss"
)

// Trip describes one circuit-breaker breach. It is a state transition, not
// an error.
type Trip struct {
	Time      time.Time
	Reason    TripReason
	Equity    float64
	Peak      float64
	Drawdown  float64
	DailyLoss float64
}

func (t Trip) String() string {
	return fmt.Sprintf("%s at %s: equity %.2f peak %.2f drawdown %.2f%% daily loss %.2f%%",
		t.Reason, t.Time.Format(time.RFC3339), t.Equity, t.Peak, 100*t.Drawdown, 100*t.DailyLoss)
}

// State is the account-level risk state.
type State struct {
	StartingEquity   float64
	PeakEquity       float64
	DayStartEquity   float64
	RunningDailyLoss float64
	Day              time.Time
	Tripped          bool
	Reason           TripReason
	Trips            int
}

// CircuitBreaker halts new entries when drawdown from peak equity exceeds
// MaxTotalDrawdown or the same-day loss exceeds MaxDailyLoss. A trip fires
// once per breach. A daily-loss trip clears at the next trading day; a
// drawdown trip holds until Reset.
type CircuitBreaker struct {
	maxDrawdown  float64
	maxDailyLoss float64

	state      State
	lastEquity float64
	observed   bool
}

func NewCircuitBreaker(p Policy, startingEquity float64) *CircuitBreaker {
	return &CircuitBreaker{
		maxDrawdown:  p.MaxTotalDrawdown,
		maxDailyLoss: p.MaxDailyLoss,
		state: State{
			StartingEquity: startingEquity,
			PeakEquity:     startingEquity,
			DayStartEquity: startingEquity,
		},
		lastEquity: startingEquity,
	}
}

func tradingDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Observe feeds the mark-to-market equity at time t. It returns the trip
// when this observation causes one.
func (b *CircuitBreaker) Observe(t time.Time, equity float64) (Trip, bool) {
	s := &b.state

	if day := tradingDay(t); !b.observed || day.After(s.Day) {
		if b.observed {
			// daily loss is measured from the prior session's last equity
			s.DayStartEquity = b.lastEquity
			if s.Tripped && s.Reason == TripDailyLoss {
				s.Tripped = false
				s.Reason = ""
			}
		}
		s.Day = day
		s.RunningDailyLoss = 0
	}
	b.observed = true
	b.lastEquity = equity

	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}

	var drawdown, daily float64
	if s.PeakEquity > 0 {
		drawdown = (s.PeakEquity - equity) / s.PeakEquity
	}
	s.RunningDailyLoss = max(0, s.DayStartEquity-equity)
	if s.DayStartEquity > 0 {
		daily = s.RunningDailyLoss / s.DayStartEquity
	}

	if s.Tripped {
		return Trip{}, false
	}

	var reason TripReason
	switch {
	case b.maxDrawdown > 0 && drawdown > b.maxDrawdown:
		reason = TripDrawdown
	case b.maxDailyLoss > 0 && daily > b.maxDailyLoss:
		reason = TripDailyLoss
	default:
		return Trip{}, false
	}

	s.Tripped = true
	s.Reason = reason
	s.Trips++
	return Trip{
		Time:      t,
		Reason:    reason,
		Equity:    equity,
		Peak:      s.PeakEquity,
		Drawdown:  drawdown,
		DailyLoss: daily,
	}, true
}

// AllowEntry reports whether new positions may be opened.
func (b *CircuitBreaker) AllowEntry() bool { return !b.state.Tripped }

// Reset clears a trip and re-bases peak and day-start equity on the last
// observed equity.
func (b *CircuitBreaker) Reset() {
	b.state.Tripped = false
	b.state.Reason = ""
	b.state.PeakEquity = b.lastEquity
	b.state.DayStartEquity = b.lastEquity
	b.state.RunningDailyLoss = 0
}

func (b *CircuitBreaker) State() State { return b.state }
