package backtest

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/risk"
	"github.com/rustyeddy/trendguard/sim"
)

// Result is the outcome of one symbol's run.
type Result struct {
	Symbol   string
	Strategy string

	StartingCash float64
	FinalEquity  float64
	TotalReturn  float64 // fraction of starting cash

	Trades        []sim.Trade
	Equity        []sim.EquityPoint
	Trips         []risk.Trip
	OpenPositions []sim.Position

	// TradeCount counts every fill; RoundTrips counts closing fills.
	TradeCount  int
	RoundTrips  int
	Wins        int
	Losses      int
	MaxDrawdown float64

	Bars       int
	Start, End time.Time
}

func (r *Result) summarize() {
	r.TradeCount = len(r.Trades)
	r.RoundTrips, r.Wins, r.Losses = 0, 0, 0
	for _, t := range r.Trades {
		if !t.Closing {
			continue
		}
		r.RoundTrips++
		switch {
		case t.RealizedPnL > 0:
			r.Wins++
		case t.RealizedPnL < 0:
			r.Losses++
		}
	}
	if r.StartingCash != 0 {
		r.TotalReturn = (r.FinalEquity - r.StartingCash) / r.StartingCash
	}
	r.MaxDrawdown = journal.MaxDrawdown(r.StartingCash, r.EquityValues())
}

// EquityValues returns the equity curve without timestamps.
func (r Result) EquityValues() []float64 {
	out := make([]float64, len(r.Equity))
	for i, p := range r.Equity {
		out[i] = p.Equity
	}
	return out
}

// TradeRecords returns the closing trades as journal records.
func (r Result) TradeRecords() []journal.TradeRecord {
	var out []journal.TradeRecord
	for _, t := range r.Trades {
		if t.Closing {
			out = append(out, journal.TradeRecord{
				TradeID:     t.ID,
				Symbol:      t.Symbol,
				Side:        string(t.Side.Opposite()),
				Qty:         t.Qty,
				ExitPrice:   t.Price,
				CloseTime:   t.Time,
				RealizedPnL: t.RealizedPnL,
				Reason:      t.Reason,
			})
		}
	}
	return out
}

// RunRecord folds per-symbol results into the backtest_runs row.
func RunRecord(runID string, created time.Time, policy risk.Policy, results []Result) journal.BacktestRun {
	run := journal.BacktestRun{
		RunID:         runID,
		Created:       created,
		RiskPerTrade:  policy.RiskPerTrade,
		StopLossPct:   policy.StopLossPct,
		TakeProfitPct: policy.TakeProfitPct,
	}

	var (
		symbols, strats []string
		trades          []journal.TradeRecord
		start, end      float64
	)
	for _, r := range results {
		symbols = append(symbols, r.Symbol)
		if !slices.Contains(strats, r.Strategy) {
			strats = append(strats, r.Strategy)
		}
		trades = append(trades, r.TradeRecords()...)
		start += r.StartingCash
		end += r.FinalEquity
		run.BreakerTrips += len(r.Trips)
		run.MaxDDPct = max(run.MaxDDPct, 100*r.MaxDrawdown)

		if r.Bars > 0 {
			if run.Start.IsZero() || r.Start.Before(run.Start) {
				run.Start = r.Start
			}
			if r.End.After(run.End) {
				run.End = r.End
			}
		}
	}
	run.Symbols = strings.Join(symbols, ",")
	run.Strategy = strings.Join(strats, ",")
	run.ApplyTrades(trades)

	run.StartBalance = start
	run.EndBalance = end
	run.NetPnL = end - start
	if start != 0 {
		run.ReturnPct = 100 * run.NetPnL / start
	}
	return run
}

// PrintSummary writes a human-readable summary of one result.
func PrintSummary(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest %s (%s)\n", r.Symbol, r.Strategy)
	fmt.Fprintln(w, "==================================================")

	if r.Bars > 0 {
		fmt.Fprintf(w, "Period:        %s .. %s (%d bars)\n", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Bars)
	}
	fmt.Fprintf(w, "Start Cash:    %.2f\n", r.StartingCash)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Return:        %.2f%%\n", 100*r.TotalReturn)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", 100*r.MaxDrawdown)
	fmt.Fprintf(w, "Trades:        %d (%d closed, %d wins, %d losses)\n", r.TradeCount, r.RoundTrips, r.Wins, r.Losses)

	for _, t := range r.Trips {
		fmt.Fprintf(w, "Breaker:       %s\n", t)
	}
	for _, p := range r.OpenPositions {
		fmt.Fprintf(w, "Open:          %s %s %g @ %.2f\n", p.Symbol, p.Side(), p.Qty, p.EntryPrice)
	}
}

// PrintRun writes the aggregate run row.
func PrintRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Run")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbols:       %s\n", r.Symbols)
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.StartBalance)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.EndBalance)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPnL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct)
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", 100*r.WinRate)
	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.ProfitFactor)
	}
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	fmt.Fprintf(w, "Breaker Trips: %d\n", r.BreakerTrips)
}
