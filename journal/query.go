package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, symbol, side, qty, entry_price, exit_price, open_time, close_time, realized_pnl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec         TradeRecord
		open, close string
	)
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.Qty,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&open,
		&close,
		&rec.RealizedPnL,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	if rec.OpenTime, err = parseTime(open); err != nil {
		return TradeRecord{}, err
	}
	if rec.CloseTime, err = parseTime(close); err != nil {
		return TradeRecord{}, err
	}
	return rec, nil
}

// GetTrade returns a single trade record of this journal's run.
func (j *SQLiteJournal) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ? AND trade_id = ?`, j.runID, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade of runID ordered by close time.
func (j *SQLiteJournal) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTradesClosedBetween returns trades of this run whose close_time is
// within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ? AND close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, trade_id ASC`, j.runID, fmtTime(start), fmtTime(end))
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the equity snapshots of runID in time order.
func (j *SQLiteJournal) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, symbol, cash, equity, open_positions
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, symbol ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			rec EquitySnapshot
			ts  string
		)
		if err := rows.Scan(&ts, &rec.Symbol, &rec.Cash, &rec.Equity, &rec.OpenPositions); err != nil {
			return nil, err
		}
		if rec.Time, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportRunOrg loads a run with its trades and renders the org report.
func (j *SQLiteJournal) ExportRunOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTrades(ctx, runID)
	if err != nil {
		return "", err
	}
	report, err := run.Report()
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return report, nil
	}
	return report + "\n** Trades\n" + FormatTradesOrg(trades), nil
}
