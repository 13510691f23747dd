package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendguard/internal/id"
	"github.com/rustyeddy/trendguard/journal"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

func newPortfolio(t *testing.T, cash float64) (*Portfolio, *journal.Memory) {
	t.Helper()
	mem := &journal.Memory{}
	p := NewPortfolio(cash, mem, id.NewGenerator(1))
	p.Label = "SPY"
	return p, mem
}

func TestOpenCloseLong(t *testing.T) {
	t.Parallel()

	p, mem := newPortfolio(t, 1000)

	open, err := p.Open(Position{Symbol: "SPY", Qty: 10, EntryPrice: 100}, day(0), "Signal")
	require.NoError(t, err)
	assert.Equal(t, Buy, open.Side)
	assert.False(t, open.Closing)
	assert.InDelta(t, 0.0, p.Cash(), 1e-9)

	p.Mark("SPY", 94)
	assert.InDelta(t, 940.0, p.Equity(), 1e-9)

	closed, err := p.Close("SPY", 0, 94, day(1), "StopLoss")
	require.NoError(t, err)
	assert.Equal(t, Sell, closed.Side)
	assert.True(t, closed.Closing)
	assert.InDelta(t, -60.0, closed.RealizedPnL, 1e-9)
	assert.InDelta(t, 940.0, p.Cash(), 1e-9)
	assert.Equal(t, 0, p.OpenCount())

	require.Len(t, mem.Trades, 1)
	rec := mem.Trades[0]
	assert.Equal(t, "BUY", rec.Side)
	assert.Equal(t, closed.ID, rec.TradeID)
	assert.True(t, rec.OpenTime.Equal(day(0)))
	assert.InDelta(t, -60.0, rec.RealizedPnL, 1e-9)
}

func TestShortAccounting(t *testing.T) {
	t.Parallel()

	p, _ := newPortfolio(t, 1000)

	_, err := p.Open(Position{Symbol: "SPY", Qty: -5, EntryPrice: 100}, day(0), "Signal")
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, p.Cash(), 1e-9)
	assert.InDelta(t, 1000.0, p.Equity(), 1e-9)

	p.Mark("SPY", 90)
	assert.InDelta(t, 1050.0, p.Equity(), 1e-9)

	tr, err := p.Close("SPY", 0, 90, day(1), "TakeProfit")
	require.NoError(t, err)
	assert.Equal(t, Buy, tr.Side)
	assert.InDelta(t, 50.0, tr.RealizedPnL, 1e-9)
	assert.InDelta(t, 1050.0, p.Cash(), 1e-9)
}

func TestPartialClose(t *testing.T) {
	t.Parallel()

	p, _ := newPortfolio(t, 2000)
	_, err := p.Open(Position{Symbol: "SPY", Qty: 10, EntryPrice: 100}, day(0), "Signal")
	require.NoError(t, err)

	tr, err := p.Close("SPY", 4, 110, day(1), "TakeProfit")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, tr.Qty, 1e-9)
	assert.InDelta(t, 40.0, tr.RealizedPnL, 1e-9)

	pos, ok := p.Position("SPY")
	require.True(t, ok)
	assert.InDelta(t, 6.0, pos.Qty, 1e-9)
	assert.InDelta(t, 100.0, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 40.0, p.Realized(), 1e-9)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	p, _ := newPortfolio(t, 500)

	_, err := p.Open(Position{Symbol: "SPY", Qty: 10, EntryPrice: 100}, day(0), "")
	assert.ErrorIs(t, err, ErrInsufficientCash)

	_, err = p.Open(Position{Symbol: "SPY", Qty: 0, EntryPrice: 100}, day(0), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = p.Open(Position{Symbol: "SPY", Qty: 1, EntryPrice: 0}, day(0), "")
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = p.Open(Position{Symbol: "SPY", Qty: 1, EntryPrice: 100}, day(0), "")
	require.NoError(t, err)
	_, err = p.Open(Position{Symbol: "SPY", Qty: 1, EntryPrice: 100}, day(1), "")
	assert.ErrorIs(t, err, ErrPositionExists)

	_, err = p.Close("QQQ", 0, 100, day(1), "")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestAdjustHedgeLeg(t *testing.T) {
	t.Parallel()

	p, _ := newPortfolio(t, 10000)

	tr, ok, err := p.Adjust("GLD", 2, 100, day(0), "Hedge")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Buy, tr.Side)

	pos, _ := p.Position("GLD")
	assert.True(t, pos.Hedge)

	// add at a higher price re-averages the entry
	_, ok, err = p.Adjust("GLD", 4, 110, day(1), "Hedge")
	require.NoError(t, err)
	require.True(t, ok)
	pos, _ = p.Position("GLD")
	assert.InDelta(t, 4.0, pos.Qty, 1e-9)
	assert.InDelta(t, 105.0, pos.EntryPrice, 1e-9)

	// unchanged target is a no-op
	_, ok, err = p.Adjust("GLD", 4, 110, day(2), "Hedge")
	require.NoError(t, err)
	assert.False(t, ok)

	tr, ok, err = p.Adjust("GLD", 1, 120, day(3), "Hedge")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tr.Closing)
	assert.InDelta(t, 3.0, tr.Qty, 1e-9)
	assert.InDelta(t, 45.0, tr.RealizedPnL, 1e-9)

	_, _, err = p.Adjust("GLD", 0, 120, day(4), "Hedge")
	require.NoError(t, err)
	_, open := p.Position("GLD")
	assert.False(t, open)

	_, _, err = p.Adjust("GLD", -1, 120, day(5), "Hedge")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCloseAllAndEquityCurve(t *testing.T) {
	t.Parallel()

	p, mem := newPortfolio(t, 5000)
	_, err := p.Open(Position{Symbol: "SPY", Qty: 10, EntryPrice: 100}, day(0), "Signal")
	require.NoError(t, err)
	_, _, err = p.Adjust("TLT", 5, 90, day(0), "Hedge")
	require.NoError(t, err)

	pt, err := p.RecordEquity(day(0))
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, pt.Equity, 1e-9)

	prices := map[string]float64{"SPY": 95, "TLT": 92}
	trades, err := p.CloseAll(func(s string) (float64, bool) {
		v, ok := prices[s]
		return v, ok
	}, day(1), "CircuitBreaker")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// symbol order
	assert.Equal(t, "SPY", trades[0].Symbol)
	assert.Equal(t, "TLT", trades[1].Symbol)

	assert.InDelta(t, 5000.0-50.0+10.0, p.Equity(), 1e-9)

	_, err = p.RecordEquity(day(1))
	require.NoError(t, err)
	curve := p.EquityCurve()
	require.Len(t, curve, 2)
	assert.Len(t, mem.Equity, 2)
	assert.Equal(t, "SPY", mem.Equity[0].Symbol)
	assert.Equal(t, 2, mem.Equity[0].OpenPositions)
	assert.Equal(t, 0, mem.Equity[1].OpenPositions)
	assert.Len(t, p.Trades(), 4)
}

func TestPositionRatios(t *testing.T) {
	t.Parallel()

	long := Position{Qty: 10, EntryPrice: 100}
	assert.InDelta(t, 0.06, long.LossRatio(94), 1e-12)
	assert.Zero(t, long.LossRatio(101))
	assert.InDelta(t, 0.1, long.GainRatio(110), 1e-12)

	short := Position{Qty: -10, EntryPrice: 100}
	assert.InDelta(t, 0.06, short.LossRatio(106), 1e-12)
	assert.InDelta(t, 0.1, short.GainRatio(90), 1e-12)
	assert.Equal(t, Sell, short.Side())
	assert.Equal(t, Buy, short.Side().Opposite())
}

func TestTradeIDsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() []string {
		p := NewPortfolio(1000, nil, id.NewGenerator(9))
		_, _ = p.Open(Position{Symbol: "SPY", Qty: 1, EntryPrice: 100}, day(0), "")
		_, _ = p.Close("SPY", 0, 101, day(1), "")
		var ids []string
		for _, tr := range p.Trades() {
			ids = append(ids, tr.ID)
		}
		return ids
	}
	assert.Equal(t, run(), run())
}
