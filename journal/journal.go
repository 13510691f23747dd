// Package journal persists the trade log and equity curve produced by a
// backtest or live run.
package journal

import (
	"sync"
	"time"
)

// TradeRecord is one closed (or partially closed) round trip.
type TradeRecord struct {
	TradeID     string
	Symbol      string
	Side        string // side of the position that was closed: BUY or SELL
	Qty         float64
	EntryPrice  float64
	ExitPrice   float64
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL float64
	Reason      string
}

// EquitySnapshot is one point on a symbol's equity curve.
type EquitySnapshot struct {
	Time          time.Time
	Symbol        string
	Cash          float64
	Equity        float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

// Memory keeps records in memory. Handy for tests and for building a run
// summary without re-reading a database.
type Memory struct {
	Trades []TradeRecord
	Equity []EquitySnapshot
	Closed bool
}

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.Trades = append(m.Trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.Equity = append(m.Equity, e)
	return nil
}

func (m *Memory) Close() error {
	m.Closed = true
	return nil
}

type syncJournal struct {
	mu sync.Mutex
	j  Journal
}

// Synchronized serializes access to j so that several per-symbol simulators
// running on their own goroutines can share one sink.
func Synchronized(j Journal) Journal {
	if _, ok := j.(*syncJournal); ok {
		return j
	}
	return &syncJournal{j: j}
}

func (s *syncJournal) RecordTrade(t TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.j.RecordTrade(t)
}

func (s *syncJournal) RecordEquity(e EquitySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.j.RecordEquity(e)
}

func (s *syncJournal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.j.Close()
}
