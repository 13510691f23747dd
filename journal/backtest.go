package journal

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID    string
	Created  time.Time
	Dataset  string
	Symbols  string
	Strategy string
	Config   []byte // YAML of the configuration used

	RiskPerTrade  float64
	StopLossPct   float64
	TakeProfitPct float64

	Start time.Time
	End   time.Time

	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	// Derived
	NetPnL       float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
	BreakerTrips int

	OrgPath string
	Notes   []string
}

// ApplyTrades fills the trade statistics from closed round trips.
// A trade with zero realized P/L counts as neither a win nor a loss.
func (r *BacktestRun) ApplyTrades(trades []TradeRecord) {
	r.Trades = len(trades)
	r.Wins, r.Losses = 0, 0

	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			r.Wins++
			grossProfit += t.RealizedPnL
		case t.RealizedPnL < 0:
			r.Losses++
			grossLoss -= t.RealizedPnL
		}
	}

	r.WinRate = 0
	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades)
	}
	r.ProfitFactor = 0
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	}
}

// ApplyEquity fills balances, return and max drawdown from an equity curve.
func (r *BacktestRun) ApplyEquity(startBalance float64, curve []float64) {
	r.StartBalance = startBalance
	r.EndBalance = startBalance
	if len(curve) > 0 {
		r.EndBalance = curve[len(curve)-1]
	}
	r.NetPnL = r.EndBalance - r.StartBalance
	r.ReturnPct = 0
	if r.StartBalance != 0 {
		r.ReturnPct = 100 * r.NetPnL / r.StartBalance
	}
	r.MaxDDPct = 100 * MaxDrawdown(startBalance, curve)
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of
// the peak. start seeds the peak.
func MaxDrawdown(start float64, curve []float64) float64 {
	peak := start
	var dd float64
	for _, v := range curve {
		peak = math.Max(peak, v)
		if peak > 0 {
			dd = math.Max(dd, (peak-v)/peak)
		}
	}
	return dd
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Unix(0, 0).UTC()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// WriteReport renders the run as an org-mode block.
func (r *BacktestRun) WriteReport(w io.Writer) error {
	if err := backtestOrg.Execute(w, r); err != nil {
		return fmt.Errorf("render backtest report: %w", err)
	}
	return nil
}

func (r *BacktestRun) Report() (string, error) {
	buf := new(bytes.Buffer)
	if err := r.WriteReport(buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteOrgFile writes the report to r.OrgPath.
func (r *BacktestRun) WriteOrgFile() error {
	if r.OrgPath == "" {
		return fmt.Errorf("backtest run %s: no org path", r.RunID)
	}
	s, err := r.Report()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.Symbols}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOLS:     {{.Symbols}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PNL:     {{printf "%.2f" .NetPnL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:BREAKERS:    {{.BreakerTrips}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Risk Parameters
| Parameter        | Value |
|------------------+-------|
| Risk per Trade % | {{printf "%.2f" (mul100 .RiskPerTrade)}} |
| Stop Loss %      | {{printf "%.2f" (mul100 .StopLossPct)}} |
| Take Profit %    | {{printf "%.2f" (mul100 .TakeProfitPct)}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPnL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Config }}

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
