package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendguard/backtest"
	"github.com/rustyeddy/trendguard/internal/metrics"
	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/sim"
)

// OrderIntent is what live mode emits for every simulated fill. Execution is
// left to whatever consumes the stream.
type OrderIntent struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Qty     float64   `json:"qty"`
	Price   float64   `json:"price"`
	Closing bool      `json:"closing"`
	Reason  string    `json:"reason"`
}

func intentOf(tr sim.Trade) OrderIntent {
	return OrderIntent{
		ID:      tr.ID,
		Time:    tr.Time,
		Symbol:  tr.Symbol,
		Side:    string(tr.Side),
		Qty:     tr.Qty,
		Price:   tr.Price,
		Closing: tr.Closing,
		Reason:  tr.Reason,
	}
}

func newLiveCmd(rc *RootConfig) *cobra.Command {
	var (
		symbol      string
		input       string
		hedgeGlobs  []string
		metricsAddr string
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the pipeline on a bar stream and emit order intents",
		Long: `Live reads bars (timestamp,open,high,low,close[,volume]) one at a time from
--input (default stdin), steps the simulator on each, and writes every fill
as a JSON order intent on stdout. SIGINT stops between bars.

Example:
  tail -f spy.csv | trendguard live --symbol SPY --metrics-addr :9102`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			symbol = strings.ToUpper(strings.TrimSpace(symbol))

			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			j, err := cfg.OpenJournal(uuid.NewString())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			opts := backtest.Options{
				Symbol:      symbol,
				InitialCash: cfg.Account.InitialCash,
				Indicators:  cfg.IndicatorParams(),
				Strategy:    cfg.Rule(),
				Policy:      cfg.Policy(),
				Journal:     j,
				Seed:        seed,
				Logger:      rc.Log,
				Metrics:     m,
			}
			if len(hedgeGlobs) > 0 {
				hedges, err := loadSeries(hedgeGlobs, time.Time{}, time.Time{}, 0)
				if err != nil {
					return err
				}
				opts.Pricer = market.NewSeriesPricer(hedges)
				opts.Hedges = sim.NewHedgeBook()
			}

			s, err := backtest.New(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if metricsAddr != "" {
				stop, err := serveMetrics(ctx, rc, metricsAddr, m.Handler())
				if err != nil {
					return err
				}
				defer stop()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			feed := market.NewCSVReader(in, symbol)
			res, err := s.RunFeed(ctx, feed, func(step backtest.StepResult) error {
				for _, tr := range step.Trades {
					if err := enc.Encode(intentOf(tr)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			backtest.PrintSummary(cmd.ErrOrStderr(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol of the bar stream (required)")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "bar CSV file, - for stdin")
	cmd.Flags().StringArrayVar(&hedgeGlobs, "hedge-bars", nil, "hedge asset CSV glob for hedge pricing (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for trade identifiers")
	_ = cmd.MarkFlagRequired("symbol")

	return cmd
}

func serveMetrics(ctx context.Context, rc *RootConfig, addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rc.Log.Error("metrics server", "err", err)
		}
	}()
	rc.Log.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

