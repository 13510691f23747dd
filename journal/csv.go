package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "symbol", "side", "qty", "entry_price", "exit_price", "open_time", "close_time", "realized_pnl", "reason"}
	equityHeader = []string{"time", "symbol", "cash", "equity", "open_positions"}
)

// csvStream is one CSV file written a row at a time. Each row is flushed
// before the write returns, so a killed process loses at most one row.
type csvStream struct {
	fh *os.File
	w  *csv.Writer
}

// openStream truncates path, or appends to it when keep is set. The header
// goes only into an empty file.
func openStream(path string, header []string, keep bool) (*csvStream, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if keep {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	fh, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	s := &csvStream{fh: fh, w: csv.NewWriter(fh)}

	st, err := fh.Stat()
	if err == nil && st.Size() == 0 {
		err = s.row(header)
	}
	if err != nil {
		_ = fh.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return s, nil
}

func (s *csvStream) row(fields []string) error {
	if err := s.w.Write(fields); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *csvStream) close() error {
	s.w.Flush()
	return errors.Join(s.w.Error(), s.fh.Close())
}

// CSVJournal writes trades and equity points to two CSV files.
type CSVJournal struct {
	trades *csvStream
	equity *csvStream
}

// NewCSV starts fresh trade and equity files, replacing existing ones.
func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	return openCSVJournal(tradesPath, equityPath, false)
}

// AppendCSV continues existing journal files. A live session restarted
// against the same paths keeps its history.
func AppendCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	return openCSVJournal(tradesPath, equityPath, true)
}

func openCSVJournal(tradesPath, equityPath string, keep bool) (*CSVJournal, error) {
	trades, err := openStream(tradesPath, tradeHeader, keep)
	if err != nil {
		return nil, err
	}
	equity, err := openStream(equityPath, equityHeader, keep)
	if err != nil {
		_ = trades.close()
		return nil, err
	}
	return &CSVJournal{trades: trades, equity: equity}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.trades.row([]string{
		t.TradeID,
		t.Symbol,
		t.Side,
		num(t.Qty),
		num(t.EntryPrice),
		num(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		num(t.RealizedPnL),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.equity.row([]string{
		e.Time.UTC().Format(time.RFC3339),
		e.Symbol,
		num(e.Cash),
		num(e.Equity),
		strconv.Itoa(e.OpenPositions),
	})
}

func (j *CSVJournal) Close() error {
	return errors.Join(j.trades.close(), j.equity.close())
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// ReadTrades parses a trades file written by CSVJournal. The header row is
// required.
func ReadTrades(r io.Reader) ([]TradeRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tradeHeader)

	head, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("trades csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("trades csv: %w", err)
	}
	if head[0] != tradeHeader[0] {
		return nil, fmt.Errorf("trades csv: unexpected header %q", head[0])
	}

	var out []TradeRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("trades csv: %w", err)
		}
		t, err := parseTradeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("trades csv line %d: %w", line, err)
		}
		out = append(out, t)
	}
}

func parseTradeRow(rec []string) (TradeRecord, error) {
	t := TradeRecord{TradeID: rec[0], Symbol: rec[1], Side: rec[2], Reason: rec[9]}

	var err error
	floats := []struct {
		dst *float64
		s   string
	}{{&t.Qty, rec[3]}, {&t.EntryPrice, rec[4]}, {&t.ExitPrice, rec[5]}, {&t.RealizedPnL, rec[8]}}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(f.s, 64); err != nil {
			return t, err
		}
	}
	if t.OpenTime, err = time.Parse(time.RFC3339, rec[6]); err != nil {
		return t, err
	}
	if t.CloseTime, err = time.Parse(time.RFC3339, rec[7]); err != nil {
		return t, err
	}
	return t, nil
}
