// Package sim is the virtual portfolio driven by the backtest and live
// pipelines: open positions, the append-only trade log and the equity curve.
package sim

import (
	"math"
	"time"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// SideOf returns the side that opens a position of signed quantity qty.
func SideOf(qty float64) Side {
	if qty < 0 {
		return Sell
	}
	return Buy
}

// Opposite is the side that reduces a position opened with s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Position is an open holding in one symbol. Qty is signed: positive long,
// negative short. Price levels are zero when unset.
type Position struct {
	ID         string
	Symbol     string
	Qty        float64
	EntryPrice float64
	EntryTime  time.Time

	StopLoss     float64
	TakeProfit   float64
	TrailingStop float64
	PartialTaken bool
	Hedge        bool
}

func (p Position) Long() bool { return p.Qty > 0 }

func (p Position) Side() Side { return SideOf(p.Qty) }

// CostBasis is the absolute amount paid (or received) to open.
func (p Position) CostBasis() float64 {
	return math.Abs(p.Qty) * p.EntryPrice
}

func (p Position) UnrealizedPnL(price float64) float64 {
	return p.Qty * (price - p.EntryPrice)
}

// LossRatio is the adverse unrealized loss as a fraction of cost basis, or 0
// when the position is flat or in profit.
func (p Position) LossRatio(price float64) float64 {
	cost := p.CostBasis()
	pnl := p.UnrealizedPnL(price)
	if cost <= 0 || pnl >= 0 {
		return 0
	}
	return -pnl / cost
}

// GainRatio is the favorable unrealized gain as a fraction of cost basis.
func (p Position) GainRatio(price float64) float64 {
	cost := p.CostBasis()
	pnl := p.UnrealizedPnL(price)
	if cost <= 0 || pnl <= 0 {
		return 0
	}
	return pnl / cost
}

func (p Position) MarketValue(price float64) float64 {
	return p.Qty * price
}
