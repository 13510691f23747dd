package risk

import "math"

// SizeInputs are the quantities the position sizer needs for one entry.
type SizeInputs struct {
	Capital      float64 // equity the risk fraction applies to
	RiskFraction float64
	StopDistance float64 // per-unit loss if stopped, usually the current ATR
	Price        float64
	Cash         float64
	MaxSize      float64 // 0 means no cap
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// Size returns whole units to trade:
//
//	floor(min(capital·risk / stopDistance, cash / price, maxSize))
//
// It fails closed, returning 0, when any input is undefined or not
// positive. The cost of the result never exceeds Cash.
func Size(in SizeInputs) float64 {
	if !finitePositive(in.StopDistance) || !finitePositive(in.Price) ||
		!finitePositive(in.Capital) || !finitePositive(in.RiskFraction) || !finitePositive(in.Cash) {
		return 0
	}

	size := in.Capital * in.RiskFraction / in.StopDistance
	size = math.Min(size, math.Floor(in.Cash/in.Price))
	if in.MaxSize > 0 {
		size = math.Min(size, in.MaxSize)
	}
	size = math.Floor(size)

	// guard the division rounding at the cash boundary
	for size > 0 && size*in.Price > in.Cash {
		size--
	}
	return math.Max(size, 0)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk computes the absolute loss if the stop is hit.
func PlannedRisk(units, entry, stop float64) float64 {
	return abs(units) * abs(entry-stop)
}

// RR is the reward-to-risk ratio of an entry.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
