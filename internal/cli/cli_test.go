package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeBars(t *testing.T, path string, closes []float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,100\n", start.AddDate(0, 0, i).Format("2006-01-02"), c, c+0.5, c-0.5, c)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func walk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p = math.Max(5, p*(1+0.015*r.NormFloat64()))
		out[i] = math.Round(p*100) / 100
	}
	return out
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "trendguard dev\n", out)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tg.yaml")

	out, err := execute(t, "", "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "", "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "flip_rsi_bb")

	require.NoError(t, os.WriteFile(path, []byte("risk:\n  max_daily_loss: 4\n"), 0644))
	_, err = execute(t, "", "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.max_daily_loss")
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "", "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestBacktestAndJournal(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data", "daily")
	require.NoError(t, os.MkdirAll(data, 0755))
	writeBars(t, filepath.Join(data, "spy.csv"), walk(250, 1))
	writeBars(t, filepath.Join(data, "qqq.csv"), walk(250, 2))

	hedges := filepath.Join(dir, "hedges")
	require.NoError(t, os.MkdirAll(hedges, 0755))
	for i, sym := range []string{"GLD", "TLT", "SPXU"} {
		writeBars(t, filepath.Join(hedges, sym+".csv"), walk(250, int64(10+i)))
	}

	cfgPath := filepath.Join(dir, "tg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
strategy:
  type: ma_crossover
indicators:
  fast_ma: 5
  slow_ma: 20
`), 0644))

	db := filepath.Join(dir, "runs.sqlite")
	report := filepath.Join(dir, "run.org")

	out, err := execute(t, "",
		"--config", cfgPath, "--db", db, "--log-level", "error",
		"backtest",
		"--bars", filepath.Join(dir, "data", "**", "*.csv"),
		"--hedge-bars", filepath.Join(hedges, "*.csv"),
		"--run-id", "run-42",
		"--report", report,
		"--seed", "3",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest QQQ (ma_crossover)")
	assert.Contains(t, out, "Backtest SPY (ma_crossover)")
	assert.Contains(t, out, "Run ID:        run-42")
	assert.Contains(t, out, "Symbols:       QQQ,SPY")

	org, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(org), "run-42")

	out, err = execute(t, "", "--db", db, "journal", "run", "run-42")
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST")
	assert.Contains(t, out, "run-42")

	_, err = execute(t, "", "--db", db, "journal", "run", "missing")
	assert.Error(t, err)

	out, err = execute(t, "", "--db", db, "journal", "day", "1999-01-01")
	require.NoError(t, err)
	assert.NotContains(t, out, "Trade:")
}

func TestBacktestNeedsMatches(t *testing.T) {
	_, err := execute(t, "", "backtest", "--bars", filepath.Join(t.TempDir(), "*.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bar files")
}

func TestBacktestRejectsBadRange(t *testing.T) {
	dir := t.TempDir()
	writeBars(t, filepath.Join(dir, "spy.csv"), walk(10, 1))
	_, err := execute(t, "", "--db", filepath.Join(dir, "j.db"), "backtest",
		"--bars", filepath.Join(dir, "*.csv"), "--from", "2024-02-01", "--to", "2024-01-01")
	assert.Error(t, err)
}

func TestBacktestTimeframe(t *testing.T) {
	dir := t.TempDir()
	writeBars(t, filepath.Join(dir, "spy.csv"), walk(300, 3))
	db := filepath.Join(dir, "j.db")

	_, err := execute(t, "", "--db", db, "backtest", "--bars", filepath.Join(dir, "*.csv"), "--timeframe", "W1")
	require.NoError(t, err)

	_, err = execute(t, "", "--db", db, "backtest", "--bars", filepath.Join(dir, "*.csv"), "--timeframe", "X5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--timeframe")
}

func TestLiveEmitsOrderIntents(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "live.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
strategy:
  type: ma_crossover
indicators:
  atr_period: 2
  fast_ma: 2
  slow_ma: 4
journal:
  type: none
`), 0644))

	var in strings.Builder
	in.WriteString("timestamp,open,high,low,close,volume\n")
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []float64{10, 10, 10, 10, 10, 11, 12, 13, 14, 15} {
		fmt.Fprintf(&in, "%s,%g,%g,%g,%g,100\n", start.AddDate(0, 0, i).Format(time.RFC3339), c, c+0.5, c-0.5, c)
	}

	out, err := execute(t, in.String(), "--config", cfgPath, "live", "--symbol", "spy")
	require.NoError(t, err)

	var intents []OrderIntent
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var oi OrderIntent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &oi))
		intents = append(intents, oi)
	}
	require.GreaterOrEqual(t, len(intents), 2)

	assert.Equal(t, "SPY", intents[0].Symbol)
	assert.Equal(t, "BUY", intents[0].Side)
	assert.False(t, intents[0].Closing)
	assert.True(t, intents[0].Time.Equal(start.AddDate(0, 0, 5)))

	assert.True(t, intents[1].Closing)
	assert.Equal(t, "TakeProfit", intents[1].Reason)
	assert.NotEqual(t, intents[0].ID, intents[1].ID)
}

func TestLiveRejectsOutOfOrderBars(t *testing.T) {
	stdin := "2024-01-02,1,1,1,1\n2024-01-01,1,1,1,1\n"
	db := filepath.Join(t.TempDir(), "j.db")
	_, err := execute(t, stdin, "--db", db, "--log-level", "error", "live", "--symbol", "SPY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp not after")
}

func TestJournalCSV(t *testing.T) {
	dir := t.TempDir()
	trades := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(trades, []byte(
		"trade_id,symbol,side,qty,entry_price,exit_price,open_time,close_time,realized_pnl,reason\n"+
			"01HV9ZK3ABCDEF,SPY,BUY,10.000000,100.000000,94.000000,2024-01-02T00:00:00Z,2024-01-05T00:00:00Z,-60.000000,StopLoss\n"), 0644))

	out, err := execute(t, "", "journal", "csv", trades)
	require.NoError(t, err)
	assert.Contains(t, out, "*** Trade: SPY BUY (01HV9ZK3)")
	assert.Contains(t, out, ":REALIZED_PNL: -60.00")
	assert.Contains(t, out, ":REASON: StopLoss")

	_, err = execute(t, "", "journal", "csv", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
