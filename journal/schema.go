package journal

// Times are stored as fixed-width UTC text (see timeLayout).
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time TEXT NOT NULL,
	close_time TEXT NOT NULL,
	realized_pnl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time TEXT NOT NULL,
	symbol TEXT NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created TEXT NOT NULL,
	dataset TEXT NOT NULL,
	symbols TEXT NOT NULL,
	strategy TEXT NOT NULL,
	config BLOB,
	risk_per_trade REAL NOT NULL,
	stop_loss_pct REAL NOT NULL,
	take_profit_pct REAL NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	net_pnl REAL NOT NULL,
	return_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	breaker_trips INTEGER NOT NULL
);
`
