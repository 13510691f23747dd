package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendguard/market"
)

// RSI is the Relative Strength Index over a rolling window of period close
// deltas, using simple averages of gains and losses.
//
// When the average loss is zero RSI is defined as 100, so a flat or strictly
// rising series reads 100 instead of dividing by zero.
type RSI struct {
	period    int
	gains     window
	losses    window
	prevClose float64
	havePrev  bool
}

func NewRSI(period int) *RSI {
	period = clampPeriod(period)
	return &RSI{
		period: period,
		gains:  newWindow(period),
		losses: newWindow(period),
	}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Reset() {
	r.gains.reset()
	r.losses.reset()
	r.prevClose = 0
	r.havePrev = false
}

func (r *RSI) Update(b market.Bar) {
	if r.havePrev {
		delta := b.Close - r.prevClose
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		r.gains.push(gain)
		r.losses.push(loss)
	}
	r.prevClose = b.Close
	r.havePrev = true
}

func (r *RSI) Ready() bool { return r.gains.full() }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	avgLoss := r.losses.mean()
	if avgLoss == 0 {
		return 100
	}
	rs := r.gains.mean() / avgLoss
	v := 100 - 100/(1+rs)
	// rounding guard; by construction v is already in [0,100]
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
