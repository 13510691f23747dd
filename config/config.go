package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendguard/indicators"
	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/risk"
	"github.com/rustyeddy/trendguard/strategies"
)

// Config represents the complete engine configuration
type Config struct {
	Account    AccountConfig         `json:"account" yaml:"account"`
	Indicators IndicatorConfig       `json:"indicators" yaml:"indicators"`
	Strategy   strategies.RuleConfig `json:"strategy" yaml:"strategy"`
	Risk       RiskConfig            `json:"risk" yaml:"risk"`
	Journal    JournalConfig         `json:"journal" yaml:"journal"`
	Log        LogConfig             `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	// CloseAtEnd liquidates open positions at the last bar of a backtest.
	CloseAtEnd bool `json:"close_at_end,omitempty" yaml:"close_at_end,omitempty"`
}

type IndicatorConfig struct {
	ATRPeriod            int     `json:"atr_period" yaml:"atr_period"`
	SupertrendMultiplier float64 `json:"supertrend_multiplier" yaml:"supertrend_multiplier"`
	RSIPeriod            int     `json:"rsi_period" yaml:"rsi_period"`
	BBPeriod             int     `json:"bb_period" yaml:"bb_period"`
	BBMultiplier         float64 `json:"bb_multiplier" yaml:"bb_multiplier"`
	FastMA               int     `json:"fast_ma" yaml:"fast_ma"`
	SlowMA               int     `json:"slow_ma" yaml:"slow_ma"`
	ADXPeriod            int     `json:"adx_period" yaml:"adx_period"`
	MACDFast             int     `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow             int     `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal           int     `json:"macd_signal" yaml:"macd_signal"`
	DonchianPeriod       int     `json:"donchian_period" yaml:"donchian_period"`
	StochPeriod          int     `json:"stoch_period" yaml:"stoch_period"`
	VolumePeriod         int     `json:"volume_period" yaml:"volume_period"`
}

// RiskConfig mirrors risk.Policy. Percentages are fractions (0.05 = 5%).
type RiskConfig struct {
	RiskPerTrade       float64          `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxPositionSize    float64          `json:"max_position_size" yaml:"max_position_size"`
	StopLossPct        float64          `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct      float64          `json:"take_profit_pct" yaml:"take_profit_pct"`
	TakeProfitFraction float64          `json:"take_profit_fraction" yaml:"take_profit_fraction"`
	TrailingStopPct    float64          `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	StopATRMultiple    float64          `json:"stop_atr_multiple,omitempty" yaml:"stop_atr_multiple,omitempty"`
	MaxDailyLoss       float64          `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxTotalDrawdown   float64          `json:"max_total_drawdown" yaml:"max_total_drawdown"`
	HedgeTiers         []risk.HedgeTier `json:"hedge_tiers,omitempty" yaml:"hedge_tiers,omitempty"`
	HedgeAssets        []string         `json:"hedge_assets,omitempty" yaml:"hedge_assets,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	// Append keeps existing csv journal files instead of replacing them.
	Append bool `json:"append,omitempty" yaml:"append,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

// LoadFromFile loads configuration from a file. Missing keys keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML, falling back to JSON, on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}

	in := c.Indicators
	if in.ATRPeriod < 1 {
		return fmt.Errorf("indicators.atr_period must be at least 1")
	}
	if in.SupertrendMultiplier <= 0 {
		return fmt.Errorf("indicators.supertrend_multiplier must be positive")
	}
	if in.RSIPeriod < 1 {
		return fmt.Errorf("indicators.rsi_period must be at least 1")
	}
	if in.BBPeriod < 1 {
		return fmt.Errorf("indicators.bb_period must be at least 1")
	}
	if in.BBMultiplier <= 0 {
		return fmt.Errorf("indicators.bb_multiplier must be positive")
	}
	if in.FastMA < 0 || in.SlowMA < 0 || in.ADXPeriod < 0 || in.MACDFast < 0 || in.MACDSlow < 0 ||
		in.MACDSignal < 0 || in.DonchianPeriod < 0 || in.StochPeriod < 0 || in.VolumePeriod < 0 {
		return fmt.Errorf("indicators periods must not be negative")
	}

	rule, err := strategies.NewRule(c.Strategy)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if _, ok := rule.(strategies.MACrossover); ok {
		if in.FastMA == 0 || in.SlowMA == 0 || in.FastMA >= in.SlowMA {
			return fmt.Errorf("ma_crossover needs 0 < indicators.fast_ma < indicators.slow_ma")
		}
	}
	if (c.Strategy.MinADX > 0 || c.Strategy.RequireDI) && in.ADXPeriod == 0 {
		return fmt.Errorf("strategy.min_adx and strategy.require_di need indicators.adx_period")
	}
	if _, ok := rule.(strategies.Breakout); ok && in.DonchianPeriod == 0 {
		return fmt.Errorf("breakout needs indicators.donchian_period")
	}
	if c.Strategy.ConfirmVolume && in.VolumePeriod == 0 {
		return fmt.Errorf("strategy.confirm_volume needs indicators.volume_period")
	}
	if c.Strategy.ConfirmMACD && (in.MACDFast == 0 || in.MACDSlow == 0 || in.MACDSignal == 0) {
		return fmt.Errorf("strategy.confirm_macd needs indicators.macd_fast, macd_slow and macd_signal")
	}

	r := c.Risk
	if r.RiskPerTrade <= 0 || r.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be between 0 and 1")
	}
	if r.StopLossPct < 0 || r.StopLossPct > 1 {
		return fmt.Errorf("risk.stop_loss_pct must be between 0 and 1")
	}
	if r.MaxDailyLoss < 0 || r.MaxDailyLoss > 1 {
		return fmt.Errorf("risk.max_daily_loss must be between 0 and 1")
	}
	if r.MaxTotalDrawdown < 0 || r.MaxTotalDrawdown > 1 {
		return fmt.Errorf("risk.max_total_drawdown must be between 0 and 1")
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// IndicatorParams returns the indicator engine parameters.
func (c *Config) IndicatorParams() indicators.Params {
	in := c.Indicators
	return indicators.Params{
		ATRPeriod:            in.ATRPeriod,
		SupertrendMultiplier: in.SupertrendMultiplier,
		RSIPeriod:            in.RSIPeriod,
		BBPeriod:             in.BBPeriod,
		BBMultiplier:         in.BBMultiplier,
		FastMA:               in.FastMA,
		SlowMA:               in.SlowMA,
		ADXPeriod:            in.ADXPeriod,
		MACDFast:             in.MACDFast,
		MACDSlow:             in.MACDSlow,
		MACDSignal:           in.MACDSignal,
		DonchianPeriod:       in.DonchianPeriod,
		StochPeriod:          in.StochPeriod,
		VolumePeriod:         in.VolumePeriod,
	}
}

func (c *Config) Rule() strategies.RuleConfig { return c.Strategy }

func (c *Config) Policy() risk.Policy {
	r := c.Risk
	return risk.Policy{
		RiskPerTrade:       r.RiskPerTrade,
		MaxPositionSize:    r.MaxPositionSize,
		StopLossPct:        r.StopLossPct,
		TakeProfitPct:      r.TakeProfitPct,
		TakeProfitFraction: r.TakeProfitFraction,
		TrailingStopPct:    r.TrailingStopPct,
		StopATRMultiple:    r.StopATRMultiple,
		MaxDailyLoss:       r.MaxDailyLoss,
		MaxTotalDrawdown:   r.MaxTotalDrawdown,
		HedgeTiers:         append([]risk.HedgeTier(nil), r.HedgeTiers...),
		HedgeAssets:        append([]string(nil), r.HedgeAssets...),
	}
}

// OpenJournal opens the configured journal. SQLite journals record under
// runID.
func (c *Config) OpenJournal(runID string) (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		if c.Journal.Append {
			return journal.AppendCSV(c.Journal.TradesFile, c.Journal.EquityFile)
		}
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath, runID)
	case "none", "":
		return journal.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	ip := indicators.DefaultParams()
	p := risk.DefaultPolicy()
	return &Config{
		Account: AccountConfig{
			InitialCash: 100000,
		},
		Indicators: IndicatorConfig{
			ATRPeriod:            ip.ATRPeriod,
			SupertrendMultiplier: ip.SupertrendMultiplier,
			RSIPeriod:            ip.RSIPeriod,
			BBPeriod:             ip.BBPeriod,
			BBMultiplier:         ip.BBMultiplier,
			FastMA:               ip.FastMA,
			SlowMA:               ip.SlowMA,
			ADXPeriod:            ip.ADXPeriod,
			MACDFast:             ip.MACDFast,
			MACDSlow:             ip.MACDSlow,
			MACDSignal:           ip.MACDSignal,
			DonchianPeriod:       ip.DonchianPeriod,
			StochPeriod:          ip.StochPeriod,
			VolumePeriod:         ip.VolumePeriod,
		},
		Strategy: strategies.DefaultRuleConfig(),
		Risk: RiskConfig{
			RiskPerTrade:       p.RiskPerTrade,
			MaxPositionSize:    p.MaxPositionSize,
			StopLossPct:        p.StopLossPct,
			TakeProfitPct:      p.TakeProfitPct,
			TakeProfitFraction: p.TakeProfitFraction,
			TrailingStopPct:    p.TrailingStopPct,
			StopATRMultiple:    p.StopATRMultiple,
			MaxDailyLoss:       p.MaxDailyLoss,
			MaxTotalDrawdown:   p.MaxTotalDrawdown,
			HedgeTiers:         p.HedgeTiers,
			HedgeAssets:        p.HedgeAssets,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}
