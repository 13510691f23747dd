package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CSVReader yields bars from CSV rows of the form
// timestamp,open,high,low,close,volume. A header row is allowed.
// Timestamps may be RFC3339, "2006-01-02 15:04:05", "2006-01-02" or unix seconds.
type CSVReader struct {
	r      *csv.Reader
	symbol string
	line   int
}

func NewCSVReader(r io.Reader, symbol string) *CSVReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVReader{r: cr, symbol: symbol}
}

// Next returns the next bar. ok is false with a nil error at EOF.
// Next does not check ordering; pair it with a Sequencer.
func (c *CSVReader) Next() (b Bar, ok bool, err error) {
	for {
		row, err := c.r.Read()
		if err == io.EOF {
			return Bar{}, false, nil
		}
		if err != nil {
			return Bar{}, false, err
		}
		c.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if c.line == 1 && isHeader(row) {
			continue
		}
		b, err := c.parse(row)
		if err != nil {
			return Bar{}, false, fmt.Errorf("line %d: %w", c.line, err)
		}
		return b, true, nil
	}
}

func isHeader(row []string) bool {
	switch strings.ToLower(strings.TrimSpace(row[0])) {
	case "timestamp", "time", "date", "datetime":
		return true
	}
	return false
}

func (c *CSVReader) parse(row []string) (Bar, error) {
	if len(row) < 5 {
		return Bar{}, fmt.Errorf("need at least 5 columns (timestamp,open,high,low,close[,volume]), got %d", len(row))
	}

	t, err := ParseTime(row[0])
	if err != nil {
		return Bar{}, err
	}

	vals := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := range names {
		if i+1 >= len(row) {
			break // volume is optional
		}
		s := strings.TrimSpace(row[i+1])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
		vals[i] = v
	}

	return Bar{
		Symbol: c.symbol,
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// ParseTime accepts the timestamp formats understood by CSVReader.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// ReadCSV reads and validates a complete bar series.
func ReadCSV(r io.Reader, symbol string) ([]Bar, error) {
	cr := NewCSVReader(r, symbol)
	var (
		bars []Bar
		seq  Sequencer
	)
	for {
		b, ok, err := cr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := seq.Check(b); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path, symbol string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}
