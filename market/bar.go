// Package market holds the price bar type consumed by the signal and risk
// engine, along with validation and loaders for bar series.
package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV price bar for a symbol. Bars are immutable once ingested.
type Bar struct {
	Symbol string
	Time   time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Mid returns the midpoint of the bar's range.
func (b Bar) Mid() float64 {
	return (b.High + b.Low) / 2
}

// ErrBadData matches every DataError via errors.Is.
var ErrBadData = errors.New("market: bad data")

// DataError reports a malformed or out-of-order bar. The engine does not
// repair the sequence; recovery belongs to whoever supplied the data.
type DataError struct {
	Symbol string
	Index  int // position in the series, -1 when unknown
	Time   time.Time
	Reason string
}

func (e *DataError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("bad bar %s[%d] at %s: %s", e.Symbol, e.Index, e.Time.Format(time.RFC3339), e.Reason)
	}
	return fmt.Sprintf("bad bar %s at %s: %s", e.Symbol, e.Time.Format(time.RFC3339), e.Reason)
}

func (e *DataError) Is(target error) bool {
	return target == ErrBadData
}

// Validate checks a single bar for negative or non-finite fields.
func Validate(b Bar) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &DataError{Symbol: b.Symbol, Index: -1, Time: b.Time, Reason: f.name + " is not finite"}
		}
		if f.v < 0 {
			return &DataError{Symbol: b.Symbol, Index: -1, Time: b.Time, Reason: fmt.Sprintf("negative %s %g", f.name, f.v)}
		}
	}
	if b.High < b.Low {
		return &DataError{Symbol: b.Symbol, Index: -1, Time: b.Time, Reason: fmt.Sprintf("high %g below low %g", b.High, b.Low)}
	}
	if b.Time.IsZero() {
		return &DataError{Symbol: b.Symbol, Index: -1, Time: b.Time, Reason: "missing timestamp"}
	}
	return nil
}

// ValidateSeries checks every bar and requires strictly increasing timestamps.
func ValidateSeries(bars []Bar) error {
	var seq Sequencer
	for _, b := range bars {
		if err := seq.Check(b); err != nil {
			return err
		}
	}
	return nil
}

// Sequencer enforces per-symbol bar ordering for a stream that arrives one
// bar at a time. The zero value is ready to use.
type Sequencer struct {
	last  time.Time
	count int
}

// Check validates b and records it as the newest bar when it is accepted.
func (s *Sequencer) Check(b Bar) error {
	if err := Validate(b); err != nil {
		var de *DataError
		if errors.As(err, &de) {
			de.Index = s.count
		}
		return err
	}
	if s.count > 0 && !b.Time.After(s.last) {
		return &DataError{
			Symbol: b.Symbol,
			Index:  s.count,
			Time:   b.Time,
			Reason: fmt.Sprintf("timestamp not after previous bar %s", s.last.Format(time.RFC3339)),
		}
	}
	s.last = b.Time
	s.count++
	return nil
}

// Count returns the number of accepted bars.
func (s *Sequencer) Count() int { return s.count }
