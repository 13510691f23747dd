package sim

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rustyeddy/trendguard/journal"
)

// IDSource issues trade identifiers for a fill time.
type IDSource interface {
	New(t time.Time) string
}

const qtyEpsilon = 1e-9

// Portfolio is the single-writer state of one simulator: cash, open
// positions keyed by symbol, the trade log and the equity curve. It is not
// safe for concurrent use; each symbol pipeline owns its own Portfolio.
type Portfolio struct {
	// Label tags equity snapshots written to the journal.
	Label string

	cash      float64
	positions map[string]*Position
	marks     map[string]float64
	trades    []Trade
	curve     []EquityPoint
	realized  float64

	journal journal.Journal
	ids     IDSource
}

func NewPortfolio(cash float64, j journal.Journal, ids IDSource) *Portfolio {
	if j == nil {
		j = journal.Nop{}
	}
	return &Portfolio{
		cash:      cash,
		positions: make(map[string]*Position),
		marks:     make(map[string]float64),
		journal:   j,
		ids:       ids,
	}
}

func (p *Portfolio) Cash() float64 { return p.cash }

// Realized is the sum of realized P/L over all closing trades.
func (p *Portfolio) Realized() float64 { return p.realized }

// Position returns the open position for symbol. The pointer stays valid
// until the position is closed; callers mutate only its risk levels.
func (p *Portfolio) Position(symbol string) (*Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns copies of all open positions ordered by symbol.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, sym := range p.symbols() {
		out = append(out, *p.positions[sym])
	}
	return out
}

func (p *Portfolio) OpenCount() int { return len(p.positions) }

func (p *Portfolio) symbols() []string {
	syms := make([]string, 0, len(p.positions))
	for s := range p.positions {
		syms = append(syms, s)
	}
	slices.Sort(syms)
	return syms
}

func checkFill(qty, price float64) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || math.Abs(qty) < qtyEpsilon {
		return fmt.Errorf("%w: %g", ErrInvalidQuantity, qty)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidPrice, price)
	}
	return nil
}

// Open creates a position from pos (Symbol, Qty and EntryPrice are
// required) and records the opening trade. Shorts credit the sale proceeds
// to cash.
func (p *Portfolio) Open(pos Position, t time.Time, reason string) (Trade, error) {
	if err := checkFill(pos.Qty, pos.EntryPrice); err != nil {
		return Trade{}, fmt.Errorf("open %s: %w", pos.Symbol, err)
	}
	if _, ok := p.positions[pos.Symbol]; ok {
		return Trade{}, fmt.Errorf("open %s: %w", pos.Symbol, ErrPositionExists)
	}
	cost := pos.Qty * pos.EntryPrice
	if cost > p.cash+qtyEpsilon {
		return Trade{}, fmt.Errorf("open %s: cost %.2f > cash %.2f: %w", pos.Symbol, cost, p.cash, ErrInsufficientCash)
	}

	p.cash -= cost
	pos.ID = p.nextID(t)
	pos.EntryTime = t
	p.positions[pos.Symbol] = &pos
	p.marks[pos.Symbol] = pos.EntryPrice

	tr := Trade{
		ID:     pos.ID,
		Time:   t,
		Symbol: pos.Symbol,
		Side:   pos.Side(),
		Price:  pos.EntryPrice,
		Qty:    math.Abs(pos.Qty),
		Reason: reason,
	}
	p.trades = append(p.trades, tr)
	return tr, nil
}

// Close reduces the position in symbol by qty units at price; qty <= 0 or
// qty >= the open size closes it fully.
func (p *Portfolio) Close(symbol string, qty, price float64, t time.Time, reason string) (Trade, error) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}
	if err := checkFill(pos.Qty, price); err != nil {
		return Trade{}, fmt.Errorf("close %s: %w", symbol, err)
	}

	size := math.Abs(pos.Qty)
	if qty <= 0 || qty > size-qtyEpsilon {
		qty = size
	}
	signed := math.Copysign(qty, pos.Qty)
	pnl := signed * (price - pos.EntryPrice)

	p.cash += signed * price
	p.realized += pnl
	p.marks[symbol] = price

	tr := Trade{
		ID:          p.nextID(t),
		Time:        t,
		Symbol:      symbol,
		Side:        pos.Side().Opposite(),
		Price:       price,
		Qty:         qty,
		Closing:     true,
		RealizedPnL: pnl,
		Reason:      reason,
	}
	p.trades = append(p.trades, tr)

	rec := journal.TradeRecord{
		TradeID:     tr.ID,
		Symbol:      symbol,
		Side:        string(pos.Side()),
		Qty:         qty,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		OpenTime:    pos.EntryTime,
		CloseTime:   t,
		RealizedPnL: pnl,
		Reason:      reason,
	}

	pos.Qty -= signed
	if math.Abs(pos.Qty) < qtyEpsilon {
		delete(p.positions, symbol)
	}

	if err := p.journal.RecordTrade(rec); err != nil {
		return tr, fmt.Errorf("journal trade %s: %w", tr.ID, err)
	}
	return tr, nil
}

// CloseAll closes every open position at the price returned by priceOf,
// falling back to the last mark. Positions close in symbol order.
func (p *Portfolio) CloseAll(priceOf func(symbol string) (float64, bool), t time.Time, reason string) ([]Trade, error) {
	var out []Trade
	for _, sym := range p.symbols() {
		price, ok := 0.0, false
		if priceOf != nil {
			price, ok = priceOf(sym)
		}
		if !ok {
			price = p.mark(sym)
		}
		tr, err := p.Close(sym, 0, price, t, reason)
		if err != nil {
			return out, err
		}
		out = append(out, tr)
	}
	return out, nil
}

// Adjust moves a long-only holding (hedge legs) to target units, opening,
// adding to or reducing the position as needed. Adding re-averages the
// entry price. ok is false when nothing changed.
func (p *Portfolio) Adjust(symbol string, target, price float64, t time.Time, reason string) (tr Trade, ok bool, err error) {
	if target < 0 {
		return Trade{}, false, fmt.Errorf("adjust %s: %w: negative target %g", symbol, ErrInvalidQuantity, target)
	}

	pos, open := p.positions[symbol]
	var cur float64
	if open {
		if pos.Qty < 0 {
			return Trade{}, false, fmt.Errorf("adjust %s: short position", symbol)
		}
		cur = pos.Qty
	}

	delta := target - cur
	switch {
	case math.Abs(delta) < qtyEpsilon:
		return Trade{}, false, nil

	case !open:
		tr, err = p.Open(Position{Symbol: symbol, Qty: target, EntryPrice: price, Hedge: true}, t, reason)
		return tr, err == nil, err

	case delta < 0:
		tr, err = p.Close(symbol, -delta, price, t, reason)
		return tr, err == nil, err
	}

	if err := checkFill(delta, price); err != nil {
		return Trade{}, false, fmt.Errorf("adjust %s: %w", symbol, err)
	}
	cost := delta * price
	if cost > p.cash+qtyEpsilon {
		return Trade{}, false, fmt.Errorf("adjust %s: cost %.2f > cash %.2f: %w", symbol, cost, p.cash, ErrInsufficientCash)
	}
	p.cash -= cost
	pos.EntryPrice = (pos.Qty*pos.EntryPrice + cost) / target
	pos.Qty = target
	p.marks[symbol] = price

	tr = Trade{
		ID:     p.nextID(t),
		Time:   t,
		Symbol: symbol,
		Side:   Buy,
		Price:  price,
		Qty:    delta,
		Reason: reason,
	}
	p.trades = append(p.trades, tr)
	return tr, true, nil
}

// Mark records the latest price for symbol used by Equity.
func (p *Portfolio) Mark(symbol string, price float64) {
	if price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0) {
		p.marks[symbol] = price
	}
}

func (p *Portfolio) mark(symbol string) float64 {
	if m, ok := p.marks[symbol]; ok {
		return m
	}
	if pos, ok := p.positions[symbol]; ok {
		return pos.EntryPrice
	}
	return 0
}

// LastPrice returns the latest mark for symbol.
func (p *Portfolio) LastPrice(symbol string) (float64, bool) {
	m, ok := p.marks[symbol]
	return m, ok
}

// Equity is cash plus the mark-to-market value of every open position.
func (p *Portfolio) Equity() float64 {
	eq := p.cash
	for _, sym := range p.symbols() {
		eq += p.positions[sym].MarketValue(p.mark(sym))
	}
	return eq
}

// RecordEquity appends the current equity to the curve and the journal.
func (p *Portfolio) RecordEquity(t time.Time) (EquityPoint, error) {
	pt := EquityPoint{Time: t, Cash: p.cash, Equity: p.Equity()}
	p.curve = append(p.curve, pt)

	err := p.journal.RecordEquity(journal.EquitySnapshot{
		Time:          t,
		Symbol:        p.Label,
		Cash:          pt.Cash,
		Equity:        pt.Equity,
		OpenPositions: len(p.positions),
	})
	if err != nil {
		return pt, fmt.Errorf("journal equity: %w", err)
	}
	return pt, nil
}

// Trades returns a copy of the trade log.
func (p *Portfolio) Trades() []Trade { return slices.Clone(p.trades) }

// EquityCurve returns a copy of the equity curve.
func (p *Portfolio) EquityCurve() []EquityPoint { return slices.Clone(p.curve) }

func (p *Portfolio) nextID(t time.Time) string {
	if p.ids == nil {
		return fmt.Sprintf("T%06d", len(p.trades)+1)
	}
	return p.ids.New(t)
}
