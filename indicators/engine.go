package indicators

import (
	"time"

	"github.com/rustyeddy/trendguard/market"
)

// Params configures the indicator set computed for every bar.
type Params struct {
	ATRPeriod            int
	SupertrendMultiplier float64
	RSIPeriod            int
	BBPeriod             int
	BBMultiplier         float64

	// FastMA and SlowMA are SMA periods; 0 disables them.
	FastMA int
	SlowMA int
	// ADXPeriod of 0 disables ADX and the directional indicators.
	ADXPeriod int

	// MACD is off unless all three periods are set.
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	// DonchianPeriod, StochPeriod and VolumePeriod of 0 disable the
	// channel, %K and the volume average.
	DonchianPeriod int
	StochPeriod    int
	VolumePeriod   int
}

func DefaultParams() Params {
	return Params{
		ATRPeriod:            14,
		SupertrendMultiplier: 3,
		RSIPeriod:            14,
		BBPeriod:             20,
		BBMultiplier:         2,
		FastMA:               50,
		SlowMA:               200,
		ADXPeriod:            14,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		DonchianPeriod:       20,
		StochPeriod:          14,
		VolumePeriod:         10,
	}
}

// Snapshot holds every indicator reading for one bar.
type Snapshot struct {
	Time  time.Time
	Close float64

	ATR      Value
	RSI      Value
	BBUpper  Value
	BBMiddle Value
	BBLower  Value
	FastMA   Value
	SlowMA   Value
	ADX      Value
	PlusDI   Value
	MinusDI  Value

	MACD          Value
	MACDSignal    Value
	MACDHist      Value
	DonchianUpper Value
	DonchianLower Value
	Stoch         Value
	Volume        float64
	VolumeAvg     Value

	Trend      SupertrendState
	TrendValid bool
}

// Ready reports whether the readings used by the Supertrend/RSI/Bollinger
// rule set are all defined.
func (s Snapshot) Ready() bool {
	return s.ATR.Valid && s.RSI.Valid && s.BBMiddle.Valid && s.TrendValid
}

// Engine feeds bars through the indicator set and the Supertrend tracker.
// Calling Update for the newest bar resumes the sequence; it never recomputes
// history, so a live driver and a backtest produce the same snapshots.
type Engine struct {
	params Params

	atr      *ATR
	rsi      *RSI
	bb       *Bollinger
	fast     *SMA
	slow     *SMA
	adx      *ADX
	macd     *MACD
	donchian *Donchian
	stoch    *Stochastic
	vol      *SMA
	trend    *Supertrend

	last  Snapshot
	count int
}

func NewEngine(p Params) *Engine {
	e := &Engine{
		params: p,
		atr:    NewATR(p.ATRPeriod),
		rsi:    NewRSI(p.RSIPeriod),
		bb:     NewBollinger(p.BBPeriod, p.BBMultiplier),
		trend:  NewSupertrend(p.SupertrendMultiplier),
	}
	if p.FastMA > 0 {
		e.fast = NewSMA(p.FastMA)
	}
	if p.SlowMA > 0 {
		e.slow = NewSMA(p.SlowMA)
	}
	if p.ADXPeriod > 0 {
		e.adx = NewADX(p.ADXPeriod)
	}
	if p.MACDFast > 0 && p.MACDSlow > 0 && p.MACDSignal > 0 {
		e.macd = NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	if p.DonchianPeriod > 0 {
		e.donchian = NewDonchian(p.DonchianPeriod)
	}
	if p.StochPeriod > 0 {
		e.stoch = NewStochastic(p.StochPeriod)
	}
	if p.VolumePeriod > 0 {
		e.vol = NewSMA(p.VolumePeriod)
	}
	return e
}

func (e *Engine) Params() Params { return e.params }

// Update consumes the next bar and returns its snapshot.
func (e *Engine) Update(b market.Bar) Snapshot {
	e.atr.Update(b)
	e.rsi.Update(b)
	e.bb.Update(b)

	snap := Snapshot{
		Time:  b.Time,
		Close:  b.Close,
		Volume: b.Volume,
		ATR:    current(e.atr),
		RSI:    current(e.rsi),
	}

	if band := e.bb.Band(); band.Valid {
		snap.BBUpper = Some(band.Upper)
		snap.BBMiddle = Some(band.Middle)
		snap.BBLower = Some(band.Lower)
	}

	if e.fast != nil {
		e.fast.Update(b)
		snap.FastMA = current(e.fast)
	}
	if e.slow != nil {
		e.slow.Update(b)
		snap.SlowMA = current(e.slow)
	}
	if e.adx != nil {
		e.adx.Update(b)
		snap.ADX = current(e.adx)
		if e.adx.DIReady() {
			snap.PlusDI = Some(e.adx.PlusDI())
			snap.MinusDI = Some(e.adx.MinusDI())
		}
	}

	if e.macd != nil {
		e.macd.Update(b)
		if e.macd.Ready() {
			snap.MACD = Some(e.macd.Value())
			snap.MACDSignal = Some(e.macd.Signal())
			snap.MACDHist = Some(e.macd.Histogram())
		}
	}
	if e.donchian != nil {
		e.donchian.Update(b)
		if e.donchian.Ready() {
			snap.DonchianUpper = Some(e.donchian.Upper())
			snap.DonchianLower = Some(e.donchian.Lower())
		}
	}
	if e.stoch != nil {
		e.stoch.Update(b)
		snap.Stoch = current(e.stoch)
	}
	if e.vol != nil {
		// the SMA averages whatever sits in Close
		e.vol.Update(market.Bar{Time: b.Time, Close: b.Volume})
		snap.VolumeAvg = current(e.vol)
	}

	// no Supertrend state until ATR is defined
	if snap.ATR.Valid {
		snap.Trend = e.trend.Step(b, snap.ATR.V)
		snap.TrendValid = true
	}

	e.last = snap
	e.count++
	return snap
}

// Last returns the most recent snapshot; ok is false before the first bar.
func (e *Engine) Last() (Snapshot, bool) {
	return e.last, e.count > 0
}

// Bars returns the number of bars consumed.
func (e *Engine) Bars() int { return e.count }

func (e *Engine) Reset() {
	e.atr.Reset()
	e.rsi.Reset()
	e.bb.Reset()
	e.trend.Reset()
	if e.fast != nil {
		e.fast.Reset()
	}
	if e.slow != nil {
		e.slow.Reset()
	}
	if e.adx != nil {
		e.adx.Reset()
	}
	if e.macd != nil {
		e.macd.Reset()
	}
	if e.donchian != nil {
		e.donchian.Reset()
	}
	if e.stoch != nil {
		e.stoch.Reset()
	}
	if e.vol != nil {
		e.vol.Reset()
	}
	e.last = Snapshot{}
	e.count = 0
}
