// Package risk sizes positions and decides when they must be reduced,
// hedged or closed, including the account-level circuit breaker.
package risk

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// HedgeTier maps an adverse loss ratio to the fraction of the position size
// carried in hedge assets.
type HedgeTier struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Fraction  float64 `json:"fraction" yaml:"fraction"`
}

type Policy struct {
	// Sizing
	RiskPerTrade    float64 // 0.01
	MaxPositionSize float64 // units; 0 means no cap

	// Per-position exits, as fractions of cost basis
	StopLossPct        float64 // 0.05
	TakeProfitPct      float64 // 0.10
	TakeProfitFraction float64 // share of the position closed at take-profit, (0,1]
	TrailingStopPct    float64 // 0 disables
	// StopATRMultiple places the stop this many ATRs from entry and sizes
	// against that distance; 0 disables.
	StopATRMultiple float64

	// Circuit breakers
	MaxDailyLoss     float64 // 0.05
	MaxTotalDrawdown float64 // 0.30

	HedgeTiers  []HedgeTier
	HedgeAssets []string
}

func DefaultPolicy() Policy {
	return Policy{
		RiskPerTrade:       0.01,
		StopLossPct:        0.05,
		TakeProfitPct:      0.10,
		TakeProfitFraction: 1,
		MaxDailyLoss:       0.05,
		MaxTotalDrawdown:   0.30,
		HedgeTiers: []HedgeTier{
			{Threshold: 0.02, Fraction: 0.25},
			{Threshold: 0.03, Fraction: 0.50},
			{Threshold: 0.04, Fraction: 1.00},
		},
		HedgeAssets: []string{"GLD", "TLT", "SPXU"},
	}
}

func fraction(name string, v float64, allowZero bool) error {
	if v < 0 || v > 1 || (!allowZero && v == 0) {
		return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
	}
	return nil
}

// Validate reports every problem found in p.
func (p Policy) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(fraction("risk_per_trade", p.RiskPerTrade, false))
	if p.MaxPositionSize < 0 {
		add(fmt.Errorf("max_position_size must not be negative, got %g", p.MaxPositionSize))
	}
	add(fraction("stop_loss_pct", p.StopLossPct, true))
	if p.TakeProfitPct < 0 {
		add(fmt.Errorf("take_profit_pct must not be negative, got %g", p.TakeProfitPct))
	}
	add(fraction("take_profit_fraction", p.TakeProfitFraction, false))
	add(fraction("trailing_stop_pct", p.TrailingStopPct, true))
	if p.StopATRMultiple < 0 || math.IsNaN(p.StopATRMultiple) || math.IsInf(p.StopATRMultiple, 0) {
		add(fmt.Errorf("stop_atr_multiple must be a non-negative number, got %g", p.StopATRMultiple))
	}
	add(fraction("max_daily_loss", p.MaxDailyLoss, true))
	add(fraction("max_total_drawdown", p.MaxTotalDrawdown, true))

	for i, t := range p.HedgeTiers {
		if t.Threshold <= 0 {
			add(fmt.Errorf("hedge_tiers[%d].threshold must be positive, got %g", i, t.Threshold))
		}
		add(fraction(fmt.Sprintf("hedge_tiers[%d].fraction", i), t.Fraction, false))
	}
	if len(p.HedgeTiers) > 0 && len(p.HedgeAssets) == 0 {
		add(errors.New("hedge_tiers set but hedge_assets is empty"))
	}
	for i, a := range p.HedgeAssets {
		if a == "" {
			add(fmt.Errorf("hedge_assets[%d] is empty", i))
		}
		if slices.Index(p.HedgeAssets, a) != i {
			add(fmt.Errorf("hedge asset %q listed twice", a))
		}
	}

	return errors.Join(errs...)
}
