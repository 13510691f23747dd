// Package strategies turns indicator snapshots into BUY/SELL/HOLD signals.
//
// Variant strategies are rule sets selected by configuration, not types in
// an inheritance tree: every rule sees the current and previous snapshot and
// nothing else.
package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/trendguard/indicators"
)

type Signal string

const (
	Hold Signal = "HOLD"
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
)

// Rule maps snapshot(n) and snapshot(n-1) to a signal. Rules must be pure:
// the same pair always yields the same signal.
type Rule interface {
	Name() string
	Evaluate(cur, prev indicators.Snapshot) Signal
}

type RuleType string

const (
	RuleFlipRSIBB   RuleType = "flip_rsi_bb"
	RuleMACrossover RuleType = "ma_crossover"
	RuleBreakout    RuleType = "breakout"
	RuleNoop        RuleType = "noop"
)

// RuleConfig is the tagged variant selecting a rule set and its parameters.
// Moving-average periods live with the indicator parameters.
type RuleConfig struct {
	Type       RuleType `json:"type" yaml:"type"`
	Oversold   float64  `json:"oversold" yaml:"oversold"`
	Overbought float64  `json:"overbought" yaml:"overbought"`

	// ma_crossover trend-strength gate; 0 and false disable it.
	MinADX    float64 `json:"min_adx,omitempty" yaml:"min_adx,omitempty"`
	RequireDI bool    `json:"require_di,omitempty" yaml:"require_di,omitempty"`

	// breakout confirmations
	ConfirmVolume bool `json:"confirm_volume,omitempty" yaml:"confirm_volume,omitempty"`
	ConfirmMACD   bool `json:"confirm_macd,omitempty" yaml:"confirm_macd,omitempty"`
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		Type:       RuleFlipRSIBB,
		Oversold:   30,
		Overbought: 70,
	}
}

// NewRule builds the rule named by cfg.Type.
func NewRule(cfg RuleConfig) (Rule, error) {
	switch RuleType(strings.ToLower(strings.TrimSpace(string(cfg.Type)))) {
	case RuleFlipRSIBB, "":
		if cfg.Oversold >= cfg.Overbought {
			return nil, fmt.Errorf("flip_rsi_bb: oversold %g must be below overbought %g", cfg.Oversold, cfg.Overbought)
		}
		return FlipRSIBB{Oversold: cfg.Oversold, Overbought: cfg.Overbought}, nil

	case RuleMACrossover, "ma-cross", "macross":
		if cfg.MinADX < 0 || cfg.MinADX > 100 {
			return nil, fmt.Errorf("ma_crossover: min_adx %g outside 0..100", cfg.MinADX)
		}
		return MACrossover{MinADX: cfg.MinADX, RequireDI: cfg.RequireDI}, nil

	case RuleBreakout, "donchian":
		return Breakout{ConfirmVolume: cfg.ConfirmVolume, ConfirmMACD: cfg.ConfirmMACD}, nil

	case RuleNoop, "none":
		return Noop{}, nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: flip_rsi_bb, ma_crossover, breakout, noop)", cfg.Type)
	}
}

// Evaluator applies one rule to consecutive snapshots.
type Evaluator struct {
	rule Rule
}

func NewEvaluator(cfg RuleConfig) (*Evaluator, error) {
	r, err := NewRule(cfg)
	if err != nil {
		return nil, err
	}
	return &Evaluator{rule: r}, nil
}

func NewEvaluatorWithRule(r Rule) *Evaluator {
	if r == nil {
		r = Noop{}
	}
	return &Evaluator{rule: r}
}

func (e *Evaluator) Rule() Rule { return e.rule }

// Evaluate returns HOLD when there is no previous snapshot.
func (e *Evaluator) Evaluate(cur, prev indicators.Snapshot) Signal {
	if prev.Time.IsZero() || !prev.Time.Before(cur.Time) {
		return Hold
	}
	return e.rule.Evaluate(cur, prev)
}
