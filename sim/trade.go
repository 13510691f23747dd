package sim

import "time"

// Trade is one fill in the append-only trade log. Qty is always positive;
// Side carries the direction. RealizedPnL is set on closing trades only.
type Trade struct {
	ID          string
	Time        time.Time
	Symbol      string
	Side        Side
	Price       float64
	Qty         float64
	Closing     bool
	RealizedPnL float64
	Reason      string
}

// EquityPoint is one mark-to-market sample.
type EquityPoint struct {
	Time   time.Time
	Cash   float64
	Equity float64
}
