package backtest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/risk"
	"github.com/rustyeddy/trendguard/strategies"
)

func TestRunAllMatchesIndependentRuns(t *testing.T) {
	t.Parallel()

	series := map[string][]market.Bar{
		"SPY": randomWalk("SPY", 250, 1),
		"QQQ": randomWalk("QQQ", 250, 2),
		"IWM": randomWalk("IWM", 250, 3),
	}

	mem := &journal.Memory{}
	base := crossoverOptions("")
	base.Journal = mem

	results, err := RunAll(context.Background(), series, base)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var closed int
	for i, sym := range []string{"IWM", "QQQ", "SPY"} {
		r := results[i]
		assert.Equal(t, sym, r.Symbol)

		s, err := New(crossoverOptions(sym))
		require.NoError(t, err)
		alone, err := s.Run(context.Background(), series[sym])
		require.NoError(t, err)

		assert.Equal(t, alone.Trades, r.Trades, sym)
		assert.Equal(t, alone.Equity, r.Equity, sym)
		closed += alone.RoundTrips
	}
	assert.Len(t, mem.Trades, closed)
	assert.Len(t, mem.Equity, 750)
}

func TestRunAllReportsBadSeries(t *testing.T) {
	t.Parallel()

	bad := series("QQQ", 100, 101)
	bad[1].Time = bad[0].Time

	results, err := RunAll(context.Background(), map[string][]market.Bar{
		"SPY": series("SPY", 100, 101, 102),
		"QQQ": bad,
	}, scriptedOptions(scripted{}, 1000))

	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrBadData)
	assert.Contains(t, err.Error(), "QQQ")
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[1].Bars)
}

func TestRangeFeed(t *testing.T) {
	t.Parallel()

	bars := series("SPY", 1, 2, 3, 4, 5, 6)
	feed := &RangeFeed{Feed: NewSliceFeed(bars), From: day(1), To: day(4)}

	var got []float64
	for {
		b, ok, err := feed.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, b.Close)
	}
	assert.Equal(t, []float64{2, 3, 4}, got)
	assert.Len(t, FilterRange(bars, day(1), day(4)), 3)
	assert.Len(t, FilterRange(bars, time.Time{}, time.Time{}), 6)
}

func TestRunRecordAndPrint(t *testing.T) {
	t.Parallel()

	opts := scriptedOptions(scripted{day(2): strategies.Buy}, 1000)
	s, err := New(opts)
	require.NoError(t, err)
	res, err := s.Run(context.Background(), series("SPY", 100, 100, 100, 94))
	require.NoError(t, err)

	flat, err := New(scriptedOptions(scripted{}, 1000))
	require.NoError(t, err)
	idle, err := flat.Run(context.Background(), series("SPY", 100, 100))
	require.NoError(t, err)

	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	run := RunRecord("run-1", created, opts.Policy, []Result{res, idle})

	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "SPY,SPY", run.Symbols)
	assert.Equal(t, "scripted", run.Strategy)
	assert.Equal(t, 1, run.Trades)
	assert.Equal(t, 1, run.Losses)
	assert.InDelta(t, 2000.0, run.StartBalance, 1e-9)
	assert.InDelta(t, 1940.0, run.EndBalance, 1e-9)
	assert.InDelta(t, -60.0, run.NetPnL, 1e-9)
	assert.InDelta(t, -3.0, run.ReturnPct, 1e-9)
	assert.InDelta(t, 6.0, run.MaxDDPct, 1e-9)
	assert.True(t, run.Start.Equal(day(0)))
	assert.True(t, run.End.Equal(day(3)))

	var buf bytes.Buffer
	PrintSummary(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Backtest SPY (scripted)")
	assert.Contains(t, out, "Final Equity:  940.00")
	assert.Contains(t, out, "1 losses")

	buf.Reset()
	PrintRun(&buf, run)
	assert.True(t, strings.Contains(buf.String(), "Run ID:        run-1"))
	assert.Contains(t, buf.String(), "Net P/L:       -60.00")
}

func TestTradeRecordsCarrySide(t *testing.T) {
	t.Parallel()

	s, err := New(scriptedOptions(scripted{day(2): strategies.Buy}, 1000))
	require.NoError(t, err)
	res, err := s.Run(context.Background(), series("SPY", 100, 100, 100, 94))
	require.NoError(t, err)

	recs := res.TradeRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "BUY", recs[0].Side)
	assert.Equal(t, string(risk.ExitStopLoss), recs[0].Reason)
}
