package backtest

import (
	"time"

	"github.com/rustyeddy/trendguard/market"
)

// BarFeed yields bars one at a time. Implementations return (ok=false,
// err=nil) at the end of the data.
type BarFeed interface {
	Next() (b market.Bar, ok bool, err error)
}

var _ BarFeed = (*market.CSVReader)(nil)

// SliceFeed serves a preloaded series.
type SliceFeed struct {
	bars []market.Bar
	i    int
}

func NewSliceFeed(bars []market.Bar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (f *SliceFeed) Next() (market.Bar, bool, error) {
	if f.i >= len(f.bars) {
		return market.Bar{}, false, nil
	}
	b := f.bars[f.i]
	f.i++
	return b, true, nil
}

// RangeFeed passes through bars with From <= time < To. Zero bounds are
// open.
type RangeFeed struct {
	Feed BarFeed
	From time.Time
	To   time.Time
}

func (f *RangeFeed) Next() (market.Bar, bool, error) {
	for {
		b, ok, err := f.Feed.Next()
		if err != nil || !ok {
			return b, ok, err
		}
		if !f.From.IsZero() && b.Time.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !b.Time.Before(f.To) {
			return market.Bar{}, false, nil
		}
		return b, true, nil
	}
}

// FilterRange returns the bars of a series with From <= time < To.
func FilterRange(bars []market.Bar, from, to time.Time) []market.Bar {
	out := make([]market.Bar, 0, len(bars))
	for _, b := range bars {
		if !from.IsZero() && b.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !b.Time.Before(to) {
			break
		}
		out = append(out, b)
	}
	return out
}
