package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendguard/market"
)

// adxTrend builds bars whose close moves step per bar with halfRange wicks.
func adxTrend(n int, start, step, halfRange float64) []market.Bar {
	bars := make([]market.Bar, n)
	p := start
	for i := range bars {
		o, c := p, p+step
		bars[i] = market.Bar{
			Time:  baseTime.Add(time.Duration(i) * time.Hour),
			Open:  o,
			High:  max(o, c) + halfRange,
			Low:   min(o, c) - halfRange,
			Close: c,
		}
		p = c
	}
	return bars
}

func TestADX_WarmupAndReady(t *testing.T) {
	adx := NewADX(3)
	assert.Equal(t, "ADX(3)", adx.Name())
	require.Equal(t, 6, adx.Warmup())
	require.False(t, adx.Ready())
	require.Equal(t, 0.0, adx.Value())

	bars := adxTrend(10, 100, 1, 0.5)
	for i, b := range bars {
		adx.Update(b)
		assert.Equal(t, i+1 >= adx.Warmup(), adx.Ready(), "bar %d", i)
		assert.Equal(t, i >= 3, adx.DIReady(), "bar %d", i)
	}
}

func TestADX_FlatMarketIsZero(t *testing.T) {
	adx := NewADX(14)
	for _, b := range flat(42, 1.2345) {
		adx.Update(b)
	}
	require.True(t, adx.Ready())
	assert.Zero(t, adx.PlusDI())
	assert.Zero(t, adx.MinusDI())
	assert.Zero(t, adx.Value())
}

func TestADX_PureUptrend(t *testing.T) {
	adx := NewADX(14)
	for _, b := range adxTrend(42, 100, 1, 0.5) {
		adx.Update(b)
	}
	require.True(t, adx.Ready())

	// TR is 2 and +DM is 1 on every bar, -DM is 0
	assert.InDelta(t, 50.0, adx.PlusDI(), 1e-9)
	assert.Zero(t, adx.MinusDI())
	assert.InDelta(t, 100.0, adx.Value(), 1e-9)
}

func TestADX_DowntrendFavorsMinusDI(t *testing.T) {
	adx := NewADX(5)
	for _, b := range adxTrend(30, 200, -1, 0.5) {
		adx.Update(b)
	}
	require.True(t, adx.Ready())
	assert.Greater(t, adx.MinusDI(), adx.PlusDI())
	assert.LessOrEqual(t, adx.Value(), 100.0)
}

func TestADX_Reset(t *testing.T) {
	adx := NewADX(3)
	for _, b := range adxTrend(10, 100, 1, 0.5) {
		adx.Update(b)
	}
	require.True(t, adx.Ready())

	adx.Reset()
	assert.False(t, adx.Ready())
	assert.False(t, adx.DIReady())
	assert.Zero(t, adx.Value())
	assert.Zero(t, adx.PlusDI())
}

func TestEngineADX(t *testing.T) {
	p := DefaultParams()
	p.ADXPeriod = 3
	e := NewEngine(p)

	var snap Snapshot
	for _, b := range adxTrend(6, 100, 1, 0.5) {
		snap = e.Update(b)
	}
	assert.Equal(t, Some(100), snap.ADX)
	assert.True(t, snap.PlusDI.Valid)
	assert.InDelta(t, 0, snap.MinusDI.V, 1e-12)

	p.ADXPeriod = 0
	off := NewEngine(p)
	for _, b := range adxTrend(6, 100, 1, 0.5) {
		snap = off.Update(b)
	}
	assert.False(t, snap.ADX.Valid)
	assert.False(t, snap.PlusDI.Valid)
}
