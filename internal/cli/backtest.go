package cli

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendguard/backtest"
	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/strategies"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		barGlobs   []string
		hedgeGlobs []string
		fromStr    string
		toStr      string
		strategy   string
		runID      string
		reportPath string
		timeframe  string
		seed       int64
		closeEnd   bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical bars through the signal and risk pipeline",
		Long: `Backtest replays every CSV matched by --bars, one symbol per file (the
file name is the symbol), each on its own virtual portfolio.

Examples:
  trendguard backtest --bars 'data/**/*.csv'
  trendguard backtest --bars data/SPY.csv --hedge-bars 'hedges/*.csv' --db runs.sqlite --report run.org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config
			if strategy != "" {
				cfg.Strategy.Type = strategies.RuleType(strategy)
			}
			if cmd.Flags().Changed("close-at-end") {
				cfg.Account.CloseAtEnd = closeEnd
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			from, to, err := parseRange(fromStr, toStr)
			if err != nil {
				return err
			}

			var tf time.Duration
			if timeframe != "" {
				if tf, err = market.ParseTimeframe(timeframe); err != nil {
					return fmt.Errorf("bad --timeframe: %w", err)
				}
			}

			series, err := loadSeries(barGlobs, from, to, tf)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return fmt.Errorf("no bar files matched %v", barGlobs)
			}
			reportGaps(rc, series)

			if runID == "" {
				runID = uuid.NewString()
			}
			j, err := cfg.OpenJournal(runID)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			opts := backtest.Options{
				InitialCash: cfg.Account.InitialCash,
				Indicators:  cfg.IndicatorParams(),
				Strategy:    cfg.Rule(),
				Policy:      cfg.Policy(),
				CloseAtEnd:  cfg.Account.CloseAtEnd,
				Journal:     j,
				Seed:        seed,
				Logger:      rc.Log,
			}
			if len(hedgeGlobs) > 0 && len(opts.Policy.HedgeAssets) > 0 {
				hedges, err := loadSeries(hedgeGlobs, from, to, tf)
				if err != nil {
					return err
				}
				for sym, bars := range series {
					if _, ok := hedges[sym]; !ok {
						hedges[sym] = bars
					}
				}
				opts.Pricer = market.NewSeriesPricer(hedges)
			}

			rc.Log.Info("backtest starting", "run_id", runID, "symbols", len(series), "strategy", cfg.Strategy.Type)

			results, err := backtest.RunAll(cmd.Context(), series, opts)
			if err != nil {
				return fmt.Errorf("backtest: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				backtest.PrintSummary(out, r)
				fmt.Fprintln(out)
			}

			run := backtest.RunRecord(runID, time.Now().UTC(), opts.Policy, results)
			run.Dataset = strings.Join(barGlobs, ",")
			if run.Config, err = yaml.Marshal(cfg); err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if reportPath == "" {
				reportPath = cfg.Journal.ReportPath
			}
			if reportPath != "" {
				run.OrgPath = reportPath
				if err := run.WriteOrgFile(); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			if sq, ok := j.(*journal.SQLiteJournal); ok {
				if err := sq.RecordRun(cmd.Context(), run); err != nil {
					return fmt.Errorf("record run: %w", err)
				}
			}

			backtest.PrintRun(out, run)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&barGlobs, "bars", "b", nil, "bar CSV glob, ** allowed (repeatable, required)")
	cmd.Flags().StringArrayVar(&hedgeGlobs, "hedge-bars", nil, "hedge asset CSV glob for hedge pricing (repeatable)")
	cmd.Flags().StringVar(&fromStr, "from", "", "first bar time to include")
	cmd.Flags().StringVar(&toStr, "to", "", "exclude bars at or after this time")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "rule set (flip_rsi_bb, ma_crossover, breakout, noop); overrides config")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: random UUID)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write an org-mode run report to this path")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "resample bars first (M15, H1, D1, W1 or a duration)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for trade identifiers")
	cmd.Flags().BoolVar(&closeEnd, "close-at-end", false, "close open positions at the last bar")
	_ = cmd.MarkFlagRequired("bars")

	return cmd
}

func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = market.ParseTime(fromStr); err != nil {
			return from, to, fmt.Errorf("bad --from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = market.ParseTime(toStr); err != nil {
			return from, to, fmt.Errorf("bad --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("--from must be before --to")
	}
	return from, to, nil
}

// loadSeries expands the globs and loads one series per file, keyed by the
// upper-cased file name without extension. A positive timeframe resamples
// each series.
func loadSeries(globs []string, from, to time.Time, timeframe time.Duration) (map[string][]market.Bar, error) {
	var paths []string
	for _, g := range globs {
		matches, err := doublestar.FilepathGlob(g)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	series := make(map[string][]market.Bar, len(paths))
	for _, p := range paths {
		sym := symbolFromPath(p)
		if _, dup := series[sym]; dup {
			return nil, fmt.Errorf("symbol %s matched by more than one file", sym)
		}
		bars, err := market.LoadCSV(p, sym)
		if err != nil {
			return nil, err
		}
		if timeframe > 0 {
			bars = market.Resample(bars, timeframe, 1)
		}
		series[sym] = backtest.FilterRange(bars, from, to)
	}
	return series, nil
}

func reportGaps(rc *RootConfig, series map[string][]market.Bar) {
	for _, sym := range slices.Sorted(maps.Keys(series)) {
		r := market.NewGapReport(series[sym], 0)
		s := r.Stats()
		if s.GapCount == 0 {
			continue
		}
		log := rc.Log.Info
		if s.SuspiciousGaps > 0 {
			log = rc.Log.Warn
		}
		log("bar gaps", "symbol", sym, "interval", r.Interval, "gaps", s.GapCount,
			"missing", s.Missing, "weekend", s.WeekendGaps, "suspicious", s.SuspiciousGaps,
			"longest", s.LongestGap, "longest_kind", s.LongestGapKind)
	}
}

func symbolFromPath(p string) string {
	base := filepath.Base(p)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}
