// Package backtest replays bar series through the indicator, signal and risk
// pipeline and keeps the virtual portfolio. The same Simulator drives live
// trading one bar at a time.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/rustyeddy/trendguard/indicators"
	"github.com/rustyeddy/trendguard/internal/id"
	"github.com/rustyeddy/trendguard/internal/logger"
	"github.com/rustyeddy/trendguard/internal/metrics"
	"github.com/rustyeddy/trendguard/journal"
	"github.com/rustyeddy/trendguard/market"
	"github.com/rustyeddy/trendguard/risk"
	"github.com/rustyeddy/trendguard/sim"
	"github.com/rustyeddy/trendguard/strategies"
)

type Options struct {
	Symbol      string
	InitialCash float64

	Indicators indicators.Params
	Strategy   strategies.RuleConfig
	// Rule overrides Strategy when set.
	Rule   strategies.Rule
	Policy risk.Policy

	// CloseAtEnd liquidates open positions at the last bar when Run ends.
	CloseAtEnd bool

	Journal journal.Journal
	// IDs issues trade IDs; nil derives a generator from Seed and Symbol.
	IDs  sim.IDSource
	Seed int64

	// Pricer supplies hedge asset prices; nil disables hedging.
	Pricer market.Pricer
	// Hedges coordinates hedge exposure across simulators; optional.
	Hedges *sim.HedgeBook

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// StepResult reports what happened on one bar.
type StepResult struct {
	Bar      market.Bar
	Snapshot indicators.Snapshot
	Signal   strategies.Signal
	Trades   []sim.Trade
	Trip     *risk.Trip
	Rejected []risk.Violation
	Equity   float64
}

// Simulator is the per-symbol pipeline. Step must be called with bars in
// strictly increasing time order; it is not safe for concurrent use.
type Simulator struct {
	opts    Options
	log     *slog.Logger
	engine  *indicators.Engine
	eval    *strategies.Evaluator
	manager *risk.Manager
	breaker *risk.CircuitBreaker
	pf      *sim.Portfolio
	seq     market.Sequencer

	prev  indicators.Snapshot
	first market.Bar
	last  market.Bar
	trips []risk.Trip
}

func New(opts Options) (*Simulator, error) {
	if opts.Symbol == "" {
		return nil, fmt.Errorf("backtest: symbol is required")
	}
	if !(opts.InitialCash > 0) || math.IsInf(opts.InitialCash, 0) {
		return nil, fmt.Errorf("backtest %s: initial cash must be positive, got %g", opts.Symbol, opts.InitialCash)
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("backtest %s: risk policy: %w", opts.Symbol, err)
	}

	var eval *strategies.Evaluator
	if opts.Rule != nil {
		eval = strategies.NewEvaluatorWithRule(opts.Rule)
	} else {
		var err error
		if eval, err = strategies.NewEvaluator(opts.Strategy); err != nil {
			return nil, fmt.Errorf("backtest %s: %w", opts.Symbol, err)
		}
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.IDs == nil {
		opts.IDs = id.ForSymbol(opts.Seed, opts.Symbol)
	}

	pf := sim.NewPortfolio(opts.InitialCash, opts.Journal, opts.IDs)
	pf.Label = opts.Symbol

	return &Simulator{
		opts:    opts,
		log:     opts.Logger.With("symbol", opts.Symbol),
		engine:  indicators.NewEngine(opts.Indicators),
		eval:    eval,
		manager: risk.NewManager(opts.Policy),
		breaker: risk.NewCircuitBreaker(opts.Policy, opts.InitialCash),
		pf:      pf,
	}, nil
}

func (s *Simulator) Symbol() string                { return s.opts.Symbol }
func (s *Simulator) Portfolio() *sim.Portfolio     { return s.pf }
func (s *Simulator) Breaker() *risk.CircuitBreaker { return s.breaker }
func (s *Simulator) Engine() *indicators.Engine    { return s.engine }

// Step advances the pipeline by one bar:
//
//  1. validate ordering and update indicators and Supertrend
//  2. evaluate the signal from snapshot(n) and snapshot(n-1)
//  3. run exits on the open position, then resize hedges
//  4. mark to market and feed the circuit breaker
//  5. enter on BUY/SELL when flat and entries are allowed
//  6. append the equity point
//
// A DataError leaves all state untouched.
func (s *Simulator) Step(b market.Bar) (StepResult, error) {
	if b.Symbol == "" {
		b.Symbol = s.opts.Symbol
	}
	if b.Symbol != s.opts.Symbol {
		return StepResult{}, &market.DataError{
			Symbol: b.Symbol, Index: s.seq.Count(), Time: b.Time,
			Reason: fmt.Sprintf("bar for %s fed to %s pipeline", b.Symbol, s.opts.Symbol),
		}
	}
	if err := s.seq.Check(b); err != nil {
		return StepResult{}, err
	}
	if s.seq.Count() == 1 {
		s.first = b
	}
	s.last = b

	snap := s.engine.Update(b)
	sig := s.eval.Evaluate(snap, s.prev)
	s.prev = snap
	s.opts.Metrics.Bar(s.opts.Symbol)
	s.opts.Metrics.Signal(s.opts.Symbol, string(sig))

	res := StepResult{Bar: b, Snapshot: snap, Signal: sig}
	s.pf.Mark(s.opts.Symbol, b.Close)

	closed, err := s.manageExit(b, sig, &res)
	if err != nil {
		return res, err
	}
	if err := s.adjustHedges(b, &res); err != nil {
		return res, err
	}

	equity := s.pf.Equity()
	if trip, ok := s.breaker.Observe(b.Time, equity); ok {
		s.trips = append(s.trips, trip)
		res.Trip = &trip
		s.opts.Metrics.Trip(s.opts.Symbol, string(trip.Reason))
		s.log.Warn("circuit breaker tripped", "reason", trip.Reason, "time", b.Time,
			"equity", trip.Equity, "peak", trip.Peak, "drawdown", trip.Drawdown, "daily_loss", trip.DailyLoss)
		if err := s.closeAll(b, string(risk.ExitCircuitBreaker), &res); err != nil {
			return res, err
		}
		closed = true
	}

	// no same-bar reversal after an exit
	if !closed {
		if err := s.enter(b, snap, sig, &res); err != nil {
			return res, err
		}
	}

	pt, err := s.pf.RecordEquity(b.Time)
	res.Equity = pt.Equity
	s.opts.Metrics.SetEquity(s.opts.Symbol, pt.Equity)
	return res, err
}

func (s *Simulator) record(res *StepResult, tr sim.Trade) {
	res.Trades = append(res.Trades, tr)
	s.opts.Metrics.Trade(tr.Symbol, string(tr.Side), tr.Reason)
	s.log.Info("trade", "id", tr.ID, "time", tr.Time, "trade_symbol", tr.Symbol, "side", tr.Side,
		"qty", tr.Qty, "price", tr.Price, "closing", tr.Closing, "pnl", tr.RealizedPnL, "reason", tr.Reason)
}

// manageExit applies the risk exits, then an opposite signal. closed is true
// when the primary position was fully closed on this bar.
func (s *Simulator) manageExit(b market.Bar, sig strategies.Signal, res *StepResult) (closed bool, err error) {
	pos, ok := s.pf.Position(s.opts.Symbol)
	if !ok {
		return false, nil
	}

	exit, hit := s.manager.Evaluate(pos, b)
	if !hit {
		if (pos.Long() && sig == strategies.Sell) || (!pos.Long() && sig == strategies.Buy) {
			exit, hit = risk.Exit{Reason: risk.ExitSignal, Qty: math.Abs(pos.Qty), Price: b.Close}, true
		}
	}
	if !hit {
		return false, nil
	}

	tr, err := s.pf.Close(s.opts.Symbol, exit.Qty, exit.Price, b.Time, string(exit.Reason))
	if err != nil {
		return false, err
	}
	s.record(res, tr)

	if exit.Partial {
		if pos, ok := s.pf.Position(s.opts.Symbol); ok {
			pos.PartialTaken = true
			return false, nil
		}
	}
	_, open := s.pf.Position(s.opts.Symbol)
	return !open, nil
}

func (s *Simulator) hedging() bool {
	return s.opts.Pricer != nil && len(s.opts.Policy.HedgeTiers) > 0 && len(s.opts.Policy.HedgeAssets) > 0
}

// adjustHedges resizes hedge legs to the tier of the primary position's
// current loss ratio and marks every leg to its latest price.
func (s *Simulator) adjustHedges(b market.Bar, res *StepResult) error {
	if !s.hedging() {
		return nil
	}

	var qty, ratio float64
	if pos, ok := s.pf.Position(s.opts.Symbol); ok {
		qty = pos.Qty
		ratio = pos.LossRatio(b.Close)
	}
	targets := risk.HedgeTargets(s.opts.Policy.HedgeTiers, s.opts.Policy.HedgeAssets, qty, ratio)

	for _, h := range targets {
		if h.Asset == s.opts.Symbol {
			continue
		}
		price, ok := s.opts.Pricer.PriceAt(h.Asset, b.Time)
		if !ok {
			if _, held := s.pf.Position(h.Asset); held {
				s.log.Debug("hedge asset has no price yet", "asset", h.Asset, "time", b.Time)
			}
			continue
		}
		s.pf.Mark(h.Asset, price)

		tr, changed, err := s.pf.Adjust(h.Asset, h.Qty, price, b.Time, "Hedge")
		if errors.Is(err, sim.ErrInsufficientCash) {
			tr, changed, err = s.partialHedge(h, price, b, res)
		}
		if err != nil {
			s.log.Debug("hedge adjustment skipped", "asset", h.Asset, "target", h.Qty, "err", err)
			continue
		}
		if changed {
			s.record(res, tr)
		}
		s.reportHedge(h.Asset)
	}
	return nil
}

// partialHedge moves leg h toward its target by as many whole units as the
// cash buys and reports the shortfall.
func (s *Simulator) partialHedge(h risk.HedgeTarget, price float64, b market.Bar, res *StepResult) (sim.Trade, bool, error) {
	var held float64
	if pos, ok := s.pf.Position(h.Asset); ok {
		held = pos.Qty
	}
	funded := held + math.Floor(s.pf.Cash()/price)

	v := risk.Violation{Code: "HEDGE_UNFUNDED", Msg: fmt.Sprintf("%s hedge target %g, funded %g", h.Asset, h.Qty, funded)}
	res.Rejected = append(res.Rejected, v)
	s.opts.Metrics.Reject(s.opts.Symbol, v.Code)
	s.log.Warn("hedge underfunded", "asset", h.Asset, "target", h.Qty, "funded", funded,
		"cash", s.pf.Cash(), "price", price, "time", b.Time)

	if funded <= held {
		return sim.Trade{}, false, nil
	}
	return s.pf.Adjust(h.Asset, funded, price, b.Time, "Hedge")
}

func (s *Simulator) reportHedge(asset string) {
	if s.opts.Hedges == nil {
		return
	}
	var held float64
	if pos, ok := s.pf.Position(asset); ok {
		held = pos.Qty
	}
	s.opts.Hedges.Set(s.opts.Symbol, asset, held)
	s.opts.Metrics.SetHedgeExposure(s.opts.Hedges.Snapshot())
}

func (s *Simulator) priceAt(b market.Bar) func(string) (float64, bool) {
	return func(symbol string) (float64, bool) {
		if symbol == s.opts.Symbol {
			return b.Close, true
		}
		if s.opts.Pricer != nil {
			return s.opts.Pricer.PriceAt(symbol, b.Time)
		}
		return 0, false
	}
}

func (s *Simulator) closeAll(b market.Bar, reason string, res *StepResult) error {
	trades, err := s.pf.CloseAll(s.priceAt(b), b.Time, reason)
	for _, tr := range trades {
		s.record(res, tr)
	}
	if s.opts.Hedges != nil {
		s.opts.Hedges.Clear(s.opts.Symbol)
		s.opts.Metrics.SetHedgeExposure(s.opts.Hedges.Snapshot())
	}
	return err
}

func (s *Simulator) enter(b market.Bar, snap indicators.Snapshot, sig strategies.Signal, res *StepResult) error {
	if sig != strategies.Buy && sig != strategies.Sell {
		return nil
	}
	_, open := s.pf.Position(s.opts.Symbol)

	p := s.opts.Policy
	equity := s.pf.Equity()
	var size float64
	if snap.ATR.Valid {
		size = risk.Size(risk.SizeInputs{
			Capital:      equity,
			RiskFraction: p.RiskPerTrade,
			StopDistance: s.manager.StopDistance(snap.ATR.V),
			Price:        b.Close,
			Cash:         s.entryCash(),
			MaxSize:      p.MaxPositionSize,
		})
	}

	qty := size
	if sig == strategies.Sell {
		qty = -size
	}
	pos := sim.Position{Symbol: s.opts.Symbol, Qty: qty, EntryPrice: b.Close}
	s.manager.Arm(&pos, snap.ATR.V)

	d := risk.CheckEntry(p, risk.EntryIntent{
		Time:       b.Time,
		Symbol:     s.opts.Symbol,
		Qty:        qty,
		Entry:      b.Close,
		Stop:       pos.StopLoss,
		TakeProfit: pos.TakeProfit,
	}, risk.AccountSnapshot{
		Cash:        s.pf.Cash(),
		Equity:      equity,
		HasPosition: open,
		Tripped:     !s.breaker.AllowEntry(),
	})
	if !d.Allowed {
		for _, v := range d.Violations {
			s.reject(res, v)
		}
		return nil
	}

	tr, err := s.pf.Open(pos, b.Time, string(risk.ExitSignal))
	if err != nil {
		return err
	}
	s.record(res, tr)
	s.log.Debug("entry", "planned_risk", d.PlannedRisk, "planned_risk_pct", d.PlannedRiskPct, "rr", d.PlannedRR)
	return nil
}

// entryCash is the cash an entry may spend. With hedging on, enough is held
// back to fund the top hedge tier at a hedge price near the entry price.
func (s *Simulator) entryCash() float64 {
	cash := s.pf.Cash()
	if s.hedging() {
		cash /= 1 + risk.MaxHedgeFraction(s.opts.Policy.HedgeTiers)
	}
	return cash
}

func (s *Simulator) reject(res *StepResult, v risk.Violation) {
	res.Rejected = append(res.Rejected, v)
	s.opts.Metrics.Reject(s.opts.Symbol, v.Code)
	s.log.Debug("entry skipped", "code", v.Code, "msg", v.Msg)
}

// Finish closes remaining positions at the last bar when CloseAtEnd is set.
func (s *Simulator) Finish() ([]sim.Trade, error) {
	if !s.opts.CloseAtEnd || s.seq.Count() == 0 || s.pf.OpenCount() == 0 {
		return nil, nil
	}
	var res StepResult
	err := s.closeAll(s.last, string(risk.ExitEndOfData), &res)
	if err == nil {
		_, err = s.pf.RecordEquity(s.last.Time)
	}
	return res.Trades, err
}

// Run replays bars in order. Cancellation is observed between bars only.
func (s *Simulator) Run(ctx context.Context, bars []market.Bar) (Result, error) {
	for _, b := range bars {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		if _, err := s.Step(b); err != nil {
			return s.Result(), err
		}
	}
	if _, err := s.Finish(); err != nil {
		return s.Result(), err
	}
	return s.Result(), nil
}

// RunFeed pulls bars from feed until it is exhausted or ctx is done,
// calling onStep after every bar.
func (s *Simulator) RunFeed(ctx context.Context, feed BarFeed, onStep func(StepResult) error) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		b, ok, err := feed.Next()
		if err != nil {
			return s.Result(), err
		}
		if !ok {
			break
		}
		res, err := s.Step(b)
		if err != nil {
			return s.Result(), err
		}
		if onStep != nil {
			if err := onStep(res); err != nil {
				return s.Result(), err
			}
		}
	}
	if _, err := s.Finish(); err != nil {
		return s.Result(), err
	}
	return s.Result(), nil
}

// Result summarizes the run so far.
func (s *Simulator) Result() Result {
	r := Result{
		Symbol:        s.opts.Symbol,
		Strategy:      s.eval.Rule().Name(),
		StartingCash:  s.opts.InitialCash,
		FinalEquity:   s.pf.Equity(),
		Trades:        s.pf.Trades(),
		Equity:        s.pf.EquityCurve(),
		Trips:         append([]risk.Trip(nil), s.trips...),
		Bars:          s.seq.Count(),
		OpenPositions: s.pf.Positions(),
	}
	if r.Bars > 0 {
		r.Start, r.End = s.first.Time, s.last.Time
	}
	r.summarize()
	return r
}
