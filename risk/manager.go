package risk

import (
	"math"

	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/sim"
)

type ExitReason string

const (
	ExitStopLoss       ExitReason = "StopLoss"
	ExitTakeProfit     ExitReason = "TakeProfit"
	ExitTrailingStop   ExitReason = "TrailingStop"
	ExitCircuitBreaker ExitReason = "CircuitBreaker"
	ExitSignal         ExitReason = "Signal"
	ExitEndOfData      ExitReason = "EndOfData"
)

// Exit is a decision to close Qty units of a position at Price.
type Exit struct {
	Reason  ExitReason
	Qty     float64
	Price   float64
	Partial bool
}

// Manager evaluates the per-position exit rules on every bar.
type Manager struct {
	policy Policy
}

func NewManager(p Policy) *Manager {
	return &Manager{policy: p}
}

func (m *Manager) Policy() Policy { return m.policy }

// Arm sets the initial stop, take-profit and trailing levels of a freshly
// sized position. atr is the current ATR and only matters with
// StopATRMultiple set, in which case the stop level sits that many ATRs
// from entry. Otherwise the levels are informational for stop and
// take-profit; Evaluate decides on loss and gain ratios.
func (m *Manager) Arm(pos *sim.Position, atr float64) {
	dir := 1.0
	if pos.Qty < 0 {
		dir = -1
	}
	e := pos.EntryPrice
	pos.StopLoss, pos.TakeProfit, pos.TrailingStop = 0, 0, 0
	if m.policy.StopLossPct > 0 {
		pos.StopLoss = e * (1 - dir*m.policy.StopLossPct)
	}
	if k := m.policy.StopATRMultiple; k > 0 && atr > 0 {
		pos.StopLoss = max(0, e-dir*k*atr)
	}
	if m.policy.TakeProfitPct > 0 {
		pos.TakeProfit = e * (1 + dir*m.policy.TakeProfitPct)
	}
	if m.policy.TrailingStopPct > 0 {
		pos.TrailingStop = e * (1 - dir*m.policy.TrailingStopPct)
	}
}

// StopDistance is the per-unit loss the sizer should plan for: the ATR
// multiple when configured, else one ATR.
func (m *Manager) StopDistance(atr float64) float64 {
	if k := m.policy.StopATRMultiple; k > 0 {
		return k * atr
	}
	return atr
}

// Evaluate checks pos against bar b's close in the order stop-loss,
// trailing stop, take-profit; the first rule that fires wins. When nothing
// fires the trailing stop ratchets toward price. It never loosens.
func (m *Manager) Evaluate(pos *sim.Position, b market.Bar) (Exit, bool) {
	price := b.Close
	size := math.Abs(pos.Qty)
	if size == 0 || price <= 0 {
		return Exit{}, false
	}

	if m.policy.StopLossPct > 0 && pos.LossRatio(price) >= m.policy.StopLossPct {
		return Exit{Reason: ExitStopLoss, Qty: size, Price: price}, true
	}
	if m.policy.StopATRMultiple > 0 && pos.StopLoss > 0 {
		hit := (pos.Long() && price <= pos.StopLoss) || (!pos.Long() && price >= pos.StopLoss)
		if hit {
			return Exit{Reason: ExitStopLoss, Qty: size, Price: price}, true
		}
	}

	if m.policy.TrailingStopPct > 0 && pos.TrailingStop > 0 {
		hit := (pos.Long() && price <= pos.TrailingStop) || (!pos.Long() && price >= pos.TrailingStop)
		if hit {
			return Exit{Reason: ExitTrailingStop, Qty: size, Price: price}, true
		}
	}

	if m.policy.TakeProfitPct > 0 && !pos.PartialTaken && pos.GainRatio(price) >= m.policy.TakeProfitPct {
		qty := size
		partial := false
		if f := m.policy.TakeProfitFraction; f > 0 && f < 1 {
			if q := math.Floor(size * f); q > 0 && q < size {
				qty, partial = q, true
			}
		}
		return Exit{Reason: ExitTakeProfit, Qty: qty, Price: price, Partial: partial}, true
	}

	m.ratchet(pos, price)
	return Exit{}, false
}

func (m *Manager) ratchet(pos *sim.Position, price float64) {
	pct := m.policy.TrailingStopPct
	if pct <= 0 {
		return
	}
	if pos.Long() {
		if trail := price * (1 - pct); trail > pos.TrailingStop {
			pos.TrailingStop = trail
		}
		return
	}
	if trail := price * (1 + pct); pos.TrailingStop == 0 || trail < pos.TrailingStop {
		pos.TrailingStop = trail
	}
}
