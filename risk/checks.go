package risk

import (
	"fmt"
	"math"
	"time"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes returns the violation codes in the order they were found.
func (d Decision) Codes() []string {
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Code
	}
	return out
}

// EntryIntent is a sized entry the simulator wants to make.
type EntryIntent struct {
	Time       time.Time
	Symbol     string
	Qty        float64 // signed
	Entry      float64
	Stop       float64
	TakeProfit float64
}

type AccountSnapshot struct {
	Cash        float64
	Equity      float64
	HasPosition bool
	Tripped     bool
}

// CheckEntry runs the pre-trade checks. Every failing check is reported.
func CheckEntry(p Policy, intent EntryIntent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if acct.Tripped {
		d.add("BREAKER_TRIPPED", "circuit breaker is tripped; entries halted")
	}
	if acct.HasPosition {
		d.add("POSITION_EXISTS", fmt.Sprintf("%s already has an open position", intent.Symbol))
	}

	if intent.Entry <= 0 || math.IsNaN(intent.Entry) {
		d.add("NO_ENTRY", "entry price must be positive")
		return d
	}
	if intent.Qty == 0 || math.IsNaN(intent.Qty) {
		d.add("NO_UNITS", "size is zero")
		return d
	}

	if intent.Stop > 0 {
		d.PlannedRisk = PlannedRisk(intent.Qty, intent.Entry, intent.Stop)
		d.PlannedRiskPct = RiskPct(d.PlannedRisk, acct.Equity)
	}
	if intent.Stop > 0 && intent.TakeProfit > 0 {
		d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)
	}

	if p.MaxPositionSize > 0 && math.Abs(intent.Qty) > p.MaxPositionSize {
		d.add("MAX_POSITION_SIZE",
			fmt.Sprintf("size %g exceeds max %g", math.Abs(intent.Qty), p.MaxPositionSize))
	}
	if cost := math.Abs(intent.Qty) * intent.Entry; cost > acct.Cash {
		d.add("INSUFFICIENT_CASH", fmt.Sprintf("cost %.2f exceeds cash %.2f", cost, acct.Cash))
	}

	return d
}
