package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendguard/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query trade journal data",
		Long: `Query and display records from the SQLite journal (--db or journal.db_path)
or from a CSV trades file.

Subcommands:
  run    - Org report for a backtest run with its trades
  trade  - Details of a specific trade
  day    - Trades closed on a specific day (UTC)
  csv    - Org entries for the trades in a CSV journal file

Examples:
  trendguard --db runs.sqlite journal run <run-id>
  trendguard --db runs.sqlite journal trade <trade-id>
  trendguard --db runs.sqlite journal day 2024-01-15
  trendguard journal csv out/trades.csv`,
	}

	open := func(runID string) (*journal.SQLiteJournal, error) {
		path := rc.Config.Journal.DBPath
		if path == "" {
			return nil, fmt.Errorf("no journal database: pass --db or set journal.db_path")
		}
		j, err := journal.NewSQLite(path, runID)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	runCmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Print the org report of a backtest run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(args[0])
			if err != nil {
				return err
			}
			defer j.Close()

			report, err := j.ExportRunOrg(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("export run: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open("query")
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := dayBounds(time.UTC, args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}

			j, err := open("query")
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		},
	}

	csvCmd := &cobra.Command{
		Use:   "csv <trades.csv>",
		Short: "Print the trades recorded in a CSV journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			recs, err := journal.ReadTrades(fh)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		},
	}

	cmd.AddCommand(runCmd, tradeCmd, dayCmd, csvCmd)
	return cmd
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
