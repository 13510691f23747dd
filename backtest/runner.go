package backtest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/sim"
)

// RunAll replays every series on its own goroutine. Each symbol gets its own
// Simulator and portfolio built from base (Symbol and IDs are filled in per
// symbol); the journal is shared behind a mutex and hedge exposure goes
// through one HedgeBook. Results are ordered by symbol.
func RunAll(ctx context.Context, series map[string][]market.Bar, base Options) ([]Result, error) {
	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	slices.Sort(symbols)

	if base.Journal != nil {
		base.Journal = journal.Synchronized(base.Journal)
	}
	if base.Hedges == nil && base.Pricer != nil {
		base.Hedges = sim.NewHedgeBook()
	}

	sims := make([]*Simulator, len(symbols))
	for i, sym := range symbols {
		opts := base
		opts.Symbol = sym
		opts.IDs = nil
		s, err := New(opts)
		if err != nil {
			return nil, err
		}
		sims[i] = s
	}

	results := make([]Result, len(symbols))
	errs := make([]error, len(symbols))

	var wg sync.WaitGroup
	for i, s := range sims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Run(ctx, series[s.Symbol()])
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Symbol(), err)
			}
		}()
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
