package indicators

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/trendguard/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closes(cs ...float64) []market.Bar {
	bars := make([]market.Bar, len(cs))
	for i, c := range cs {
		bars[i] = market.Bar{Time: baseTime.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func flat(n int, c float64) []market.Bar {
	cs := make([]float64, n)
	for i := range cs {
		cs[i] = c
	}
	return closes(cs...)
}

func TestSMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108, 110)

	ma := NewSMA(3)
	assert.Equal(t, "SMA(3)", ma.Name())
	assert.Equal(t, 3, ma.Warmup())
	assert.False(t, ma.Ready())
	assert.Equal(t, 0.0, ma.Value())

	ma.Update(bars[0])
	ma.Update(bars[1])
	assert.False(t, ma.Ready())

	ma.Update(bars[2])
	assert.True(t, ma.Ready())
	assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma.Value(), 0.001)

	ma.Update(bars[3])
	assert.InDelta(t, (105.0+106.0+108.0)/3.0, ma.Value(), 0.001)

	ma.Reset()
	assert.False(t, ma.Ready())
	assert.Equal(t, 0.0, ma.Value())
}

func TestEMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108)

	ema := NewEMA(3)
	assert.Equal(t, "EMA(3)", ema.Name())
	for _, b := range bars[:3] {
		ema.Update(b)
	}
	require.True(t, ema.Ready())
	seed := (102.0 + 105.0 + 106.0) / 3.0
	assert.InDelta(t, seed, ema.Value(), 0.001)

	// multiplier = 2/(3+1) = 0.5
	ema.Update(bars[3])
	assert.InDelta(t, (108.0-seed)*0.5+seed, ema.Value(), 0.001)
}

func TestTrueRange(t *testing.T) {
	tests := []struct {
		name      string
		bar       market.Bar
		prevClose float64
		want      float64
	}{
		{"range dominates", market.Bar{High: 110, Low: 100}, 104, 10},
		{"gap up", market.Bar{High: 110, Low: 108}, 100, 10},
		{"gap down", market.Bar{High: 95, Low: 90}, 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TrueRange(tt.bar, tt.prevClose), 1e-12)
		})
	}
}

func TestATRSimpleRollingMean(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}

	atr := NewATR(3)
	assert.Equal(t, "ATR(3)", atr.Name())
	assert.Equal(t, 4, atr.Warmup())

	vals := ATRValues(bars, 3)
	require.Len(t, vals, len(bars))
	for i := 0; i < 3; i++ {
		assert.False(t, vals[i].Valid, "bar %d inside warm-up", i)
	}
	for i := 3; i < len(bars); i++ {
		require.True(t, vals[i].Valid)
		assert.InDelta(t, 2.0, vals[i].V, 1e-12)
	}
}

func TestATRTracksLatestWindow(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 10, Close: 10},
		{High: 11, Low: 10, Close: 11}, // TR 1
		{High: 14, Low: 11, Close: 13}, // TR 3
		{High: 18, Low: 13, Close: 17}, // TR 5
	}
	vals := ATRValues(bars, 2)
	assert.InDelta(t, 2.0, vals[2].V, 1e-12)
	assert.InDelta(t, 4.0, vals[3].V, 1e-12)
}

func TestRSI(t *testing.T) {
	t.Run("mixed deltas", func(t *testing.T) {
		vals := RSIValues(closes(1, 2, 3, 2, 3), 2)
		assert.False(t, vals[0].Valid)
		assert.False(t, vals[1].Valid)
		assert.InDelta(t, 100.0, vals[2].V, 1e-9)
		assert.InDelta(t, 50.0, vals[3].V, 1e-9)
		assert.InDelta(t, 50.0, vals[4].V, 1e-9)
	})

	t.Run("only losses", func(t *testing.T) {
		vals := RSIValues(closes(5, 4, 3), 2)
		require.True(t, vals[2].Valid)
		assert.InDelta(t, 0.0, vals[2].V, 1e-9)
	})

	t.Run("known ratio", func(t *testing.T) {
		// gains 2, losses 1 over 2 deltas => RS=2 => RSI=66.67
		vals := RSIValues(closes(10, 12, 11), 2)
		assert.InDelta(t, 100.0-100.0/3.0, vals[2].V, 1e-9)
	})
}

func TestRSIBoundedForRandomWalks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 20; run++ {
		cs := make([]float64, 300)
		px := 100.0
		for i := range cs {
			px = math.Max(0.01, px+rng.NormFloat64()*2)
			cs[i] = px
		}
		for i, v := range RSIValues(closes(cs...), 14) {
			if i < 14 {
				assert.False(t, v.Valid)
				continue
			}
			require.True(t, v.Valid)
			assert.False(t, math.IsNaN(v.V))
			assert.GreaterOrEqual(t, v.V, 0.0)
			assert.LessOrEqual(t, v.V, 100.0)
		}
	}
}

func TestBollingerPopulationStdDev(t *testing.T) {
	bands := BollingerValues(closes(1, 2, 3), 3, 2)
	require.Len(t, bands, 3)
	assert.False(t, bands[1].Valid)
	require.True(t, bands[2].Valid)

	sd := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, 2.0, bands[2].Middle, 1e-12)
	assert.InDelta(t, 2.0+2*sd, bands[2].Upper, 1e-12)
	assert.InDelta(t, 2.0-2*sd, bands[2].Lower, 1e-12)

	sdv := StdDevValues(closes(1, 2, 3), 3)
	assert.InDelta(t, sd, sdv[2].V, 1e-12)
}

func TestFlatSeriesDegenerates(t *testing.T) {
	bars := flat(40, 50)

	for i, v := range ATRValues(bars, 14) {
		if i >= 14 {
			require.True(t, v.Valid)
			assert.Equal(t, 0.0, v.V)
		}
	}
	for i, v := range RSIValues(bars, 14) {
		if i >= 14 {
			require.True(t, v.Valid, "RSI must be defined once warmed up")
			assert.Equal(t, 100.0, v.V)
		}
	}
	for i, b := range BollingerValues(bars, 20, 2) {
		if i >= 19 {
			assert.Equal(t, 50.0, b.Upper)
			assert.Equal(t, 50.0, b.Middle)
			assert.Equal(t, 50.0, b.Lower)
		}
	}
}

func TestSeriesIsLazyAndResets(t *testing.T) {
	bars := closes(1, 2, 3, 4, 5)
	ma := NewSMA(2)

	n := 0
	for range Series(ma, bars) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	// a second pass starts from scratch
	var got []Value
	for v := range Series(ma, bars) {
		got = append(got, v)
	}
	require.Len(t, got, 5)
	assert.False(t, got[0].Valid)
	assert.InDelta(t, 4.5, got[4].V, 1e-12)
}

func TestIndicatorInterface(t *testing.T) {
	var _ Indicator = &SMA{}
	var _ Indicator = &EMA{}
	var _ Indicator = &ATR{}
	var _ Indicator = &RSI{}
	var _ Indicator = &StdDev{}
	var _ Indicator = &Bollinger{}
	var _ Indicator = &MACD{}
	var _ Indicator = &Donchian{}
	var _ Indicator = &Stochastic{}

	bars := []market.Bar{
		{High: 105, Low: 99, Close: 102},
		{High: 107, Low: 101, Close: 105},
		{High: 108, Low: 104, Close: 104},
		{High: 110, Low: 105, Close: 108},
		{High: 112, Low: 107, Close: 110},
	}

	for _, ind := range []Indicator{NewSMA(3), NewEMA(3), NewATR(2), NewRSI(2), NewStdDev(3), NewBollinger(3, 2)} {
		assert.False(t, ind.Ready(), "indicator %s should not be ready initially", ind.Name())
		for _, b := range bars {
			ind.Update(b)
		}
		assert.True(t, ind.Ready(), "indicator %s should be ready after warmup", ind.Name())
		assert.Greater(t, ind.Value(), 0.0, "indicator %s should have positive value", ind.Name())

		ind.Reset()
		assert.False(t, ind.Ready(), "indicator %s should not be ready after reset", ind.Name())
	}
}
