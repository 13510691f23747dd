package market

import (
	"sort"
	"time"
)

// Pricer returns the latest known close for a symbol at or before t.
// Implementations must never return a price from a bar later than t.
type Pricer interface {
	PriceAt(symbol string, t time.Time) (float64, bool)
}

// SeriesPricer serves prices from preloaded bar series. It is read-only after
// construction and safe for concurrent use.
type SeriesPricer struct {
	series map[string][]Bar
}

// NewSeriesPricer indexes series by symbol. Each series must already be in
// timestamp order (see ValidateSeries).
func NewSeriesPricer(series map[string][]Bar) *SeriesPricer {
	cp := make(map[string][]Bar, len(series))
	for sym, bars := range series {
		cp[sym] = bars
	}
	return &SeriesPricer{series: cp}
}

func (p *SeriesPricer) PriceAt(symbol string, t time.Time) (float64, bool) {
	bars := p.series[symbol]
	// first bar strictly after t
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.After(t) })
	if i == 0 {
		return 0, false
	}
	return bars[i-1].Close, true
}
