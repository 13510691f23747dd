package indicators

import (
	"testing"

	"github.com/rustyeddy/trendguard/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, from, to float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		c := from + (to-from)*float64(i)/float64(n-1)
		bars[i] = market.Bar{
			Time:  baseTime.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

// trend runs the tracker over bars the same way Engine does: one step per
// bar once ATR is defined.
func trend(bars []market.Bar, atrPeriod int, mult float64) []SupertrendState {
	atr := NewATR(atrPeriod)
	st := NewSupertrend(mult)
	var out []SupertrendState
	for _, b := range bars {
		atr.Update(b)
		if !atr.Ready() {
			continue
		}
		out = append(out, st.Step(b, atr.Value()))
	}
	return out
}

func TestStepSupertrendFirstBar(t *testing.T) {
	b := market.Bar{High: 100, Low: 80, Close: 81}
	st := StepSupertrend(b, 1, 3, nil)
	assert.InDelta(t, 93.0, st.Upper, 1e-12)
	assert.InDelta(t, 87.0, st.Lower, 1e-12)
	assert.Equal(t, Down, st.Direction)
	assert.Equal(t, 81.0, st.Close)

	b.Close = 88
	assert.Equal(t, Up, StepSupertrend(b, 1, 3, nil).Direction)
}

func TestStepSupertrendUsesPriorState(t *testing.T) {
	b := market.Bar{High: 101, Low: 99, Close: 100}

	t.Run("upper carried when prior close broke above", func(t *testing.T) {
		prev := SupertrendState{Upper: 110, Lower: 90, Close: 115, Direction: Up}
		st := StepSupertrend(b, 2, 3, &prev)
		assert.InDelta(t, 110.0, st.Upper, 1e-12)
		assert.InDelta(t, 94.0, st.Lower, 1e-12)
		assert.Equal(t, Up, st.Direction)
	})

	t.Run("lower carried when prior close broke below", func(t *testing.T) {
		prev := SupertrendState{Upper: 110, Lower: 90, Close: 85, Direction: Down}
		st := StepSupertrend(b, 2, 3, &prev)
		assert.InDelta(t, 106.0, st.Upper, 1e-12)
		assert.InDelta(t, 90.0, st.Lower, 1e-12)
		assert.Equal(t, Up, st.Direction)
	})

	t.Run("basic bands when prior close inside", func(t *testing.T) {
		prev := SupertrendState{Upper: 110, Lower: 90, Close: 100}
		st := StepSupertrend(b, 2, 3, &prev)
		assert.InDelta(t, 106.0, st.Upper, 1e-12)
		assert.InDelta(t, 94.0, st.Lower, 1e-12)
	})
}

func TestSupertrendRestore(t *testing.T) {
	st := NewSupertrend(3)
	_, ok := st.State()
	assert.False(t, ok)

	st.Restore(SupertrendState{Upper: 110, Lower: 90, Close: 115, Direction: Up})
	got := st.Step(market.Bar{High: 101, Low: 99, Close: 100}, 2)
	assert.InDelta(t, 110.0, got.Upper, 1e-12)

	prev, ok := st.Previous()
	require.True(t, ok)
	assert.Equal(t, 115.0, prev.Close)

	st.Reset()
	_, ok = st.Previous()
	assert.False(t, ok)
}

func TestSupertrendRisingSeriesNeverFlipsBack(t *testing.T) {
	// 30 daily bars, closes rising linearly 100 -> 130, ATR(14), multiplier 3
	states := trend(ramp(30, 100, 130), 14, 3)
	require.Len(t, states, 30-14)

	flipsUp := 0
	for i := 1; i < len(states); i++ {
		if states[i-1].Direction == Down && states[i].Direction == Up {
			flipsUp++
		}
		if states[i-1].Direction == Up {
			assert.Equal(t, Up, states[i].Direction, "flipped back down at state %d", i)
		}
		// lower band ratchet while trending up
		assert.GreaterOrEqual(t, states[i].Lower, states[i-1].Lower)
	}
	assert.LessOrEqual(t, flipsUp, 1)
	assert.Equal(t, Up, states[len(states)-1].Direction)
}

func TestSupertrendFallingSeriesUpperBandNonIncreasing(t *testing.T) {
	states := trend(ramp(40, 130, 90), 10, 3)
	require.NotEmpty(t, states)
	for i := 1; i < len(states); i++ {
		if states[i].Direction != states[i-1].Direction {
			continue
		}
		assert.LessOrEqual(t, states[i].Upper, states[i-1].Upper)
	}
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "UP", Up.String())
	assert.Equal(t, "DOWN", Down.String())
	assert.Equal(t, "NONE", Direction(0).String())
}

func TestEngineWarmupAndSnapshots(t *testing.T) {
	e := NewEngine(Params{ATRPeriod: 3, SupertrendMultiplier: 3, RSIPeriod: 3, BBPeriod: 3, BBMultiplier: 2, FastMA: 2, SlowMA: 4})
	bars := ramp(6, 100, 105)

	_, ok := e.Last()
	assert.False(t, ok)

	for i, b := range bars[:3] {
		snap := e.Update(b)
		assert.False(t, snap.Ready(), "bar %d", i)
		assert.False(t, snap.TrendValid)
	}
	snap, _ := e.Last()
	assert.True(t, snap.BBMiddle.Valid, "BB(3) is defined on the third bar")
	assert.True(t, snap.FastMA.Valid)
	assert.False(t, snap.SlowMA.Valid)

	snap = e.Update(bars[3])
	assert.True(t, snap.Ready())
	assert.True(t, snap.SlowMA.Valid)
	assert.Equal(t, bars[3].Time, snap.Time)
	assert.Equal(t, bars[3].Close, snap.Close)
	assert.Equal(t, 4, e.Bars())

	e.Reset()
	assert.Equal(t, 0, e.Bars())
}

func TestEngineMatchesStandaloneIndicators(t *testing.T) {
	bars := ramp(50, 100, 80)
	p := Params{ATRPeriod: 14, SupertrendMultiplier: 3, RSIPeriod: 14, BBPeriod: 20, BBMultiplier: 2}
	e := NewEngine(p)

	atr := ATRValues(bars, 14)
	rsi := RSIValues(bars, 14)
	bb := BollingerValues(bars, 20, 2)
	states := trend(bars, 14, 3)

	k := 0
	for i, b := range bars {
		snap := e.Update(b)
		assert.Equal(t, atr[i], snap.ATR)
		assert.Equal(t, rsi[i], snap.RSI)
		assert.Equal(t, bb[i].Valid, snap.BBLower.Valid)
		assert.Equal(t, bb[i].Lower, snap.BBLower.V)
		if snap.TrendValid {
			assert.Equal(t, states[k], snap.Trend)
			k++
		}
	}
	assert.Equal(t, len(states), k)
	assert.Nil(t, e.fast)
}
