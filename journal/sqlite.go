package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal writes every record under one run ID so several runs can
// share a database file.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	if runID == "" {
		return nil, fmt.Errorf("sqlite journal: run id is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite journal: create schema: %w", err)
	}

	return &SQLiteJournal{db: db, runID: runID}, nil
}

func (j *SQLiteJournal) RunID() string { return j.runID }

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, trade_id, symbol, side, qty, entry_price, exit_price, open_time, close_time, realized_pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, t.TradeID, t.Symbol, t.Side, t.Qty, t.EntryPrice, t.ExitPrice,
		fmtTime(t.OpenTime), fmtTime(t.CloseTime), t.RealizedPnL, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, symbol, cash, equity, open_positions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, fmtTime(e.Time), e.Symbol, e.Cash, e.Equity, e.OpenPositions,
	)
	return err
}

// RecordRun inserts or replaces the summary row for r.RunID.
func (j *SQLiteJournal) RecordRun(ctx context.Context, r BacktestRun) error {
	if r.RunID == "" {
		r.RunID = j.runID
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, dataset, symbols, strategy, config, risk_per_trade, stop_loss_pct, take_profit_pct,
		 start_time, end_time, trades, wins, losses, start_balance, end_balance, net_pnl, return_pct,
		 win_rate, profit_factor, max_dd_pct, breaker_trips)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, fmtTime(r.Created), r.Dataset, r.Symbols, r.Strategy, r.Config,
		r.RiskPerTrade, r.StopLossPct, r.TakeProfitPct,
		fmtTime(r.Start), fmtTime(r.End), r.Trades, r.Wins, r.Losses,
		r.StartBalance, r.EndBalance, r.NetPnL, r.ReturnPct,
		r.WinRate, r.ProfitFactor, r.MaxDDPct, r.BreakerTrips,
	)
	return err
}

func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		r                   BacktestRun
		created, start, end string
	)
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, dataset, symbols, strategy, config, risk_per_trade, stop_loss_pct, take_profit_pct,
		       start_time, end_time, trades, wins, losses, start_balance, end_balance, net_pnl, return_pct,
		       win_rate, profit_factor, max_dd_pct, breaker_trips
		FROM backtest_runs WHERE run_id = ?`, runID)
	err := row.Scan(
		&r.RunID, &created, &r.Dataset, &r.Symbols, &r.Strategy, &r.Config,
		&r.RiskPerTrade, &r.StopLossPct, &r.TakeProfitPct,
		&start, &end, &r.Trades, &r.Wins, &r.Losses,
		&r.StartBalance, &r.EndBalance, &r.NetPnL, &r.ReturnPct,
		&r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.BreakerTrips,
	)
	if err == sql.ErrNoRows {
		return BacktestRun{}, fmt.Errorf("backtest run %q not found", runID)
	}
	if err != nil {
		return BacktestRun{}, err
	}
	if r.Created, err = parseTime(created); err != nil {
		return BacktestRun{}, err
	}
	if r.Start, err = parseTime(start); err != nil {
		return BacktestRun{}, err
	}
	if r.End, err = parseTime(end); err != nil {
		return BacktestRun{}, err
	}
	return r, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// fixed width, so text comparison orders by time
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
