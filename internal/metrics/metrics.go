// Package metrics exposes Prometheus instrumentation for the signal and risk
// pipeline:
//
//	trendguard_bars_total{symbol}
//	trendguard_signals_total{symbol,signal}
//	trendguard_trades_total{symbol,side,reason}
//	trendguard_entries_rejected_total{symbol,code}
//	trendguard_breaker_trips_total{symbol,reason}
//	trendguard_equity{symbol}
//	trendguard_hedge_exposure{asset}
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Bars          *prometheus.CounterVec
	Signals       *prometheus.CounterVec
	Trades        *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	BreakerTrips  *prometheus.CounterVec
	Equity        *prometheus.GaugeVec
	HedgeExposure *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Bars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendguard_bars_total",
			Help: "Bars processed",
		}, []string{"symbol"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendguard_signals_total",
			Help: "Signals evaluated, by signal",
		}, []string{"symbol", "signal"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendguard_trades_total",
			Help: "Trades recorded, by side and reason",
		}, []string{"symbol", "side", "reason"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendguard_entries_rejected_total",
			Help: "Entries refused by pre-trade checks, by violation code",
		}, []string{"symbol", "code"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendguard_breaker_trips_total",
			Help: "Circuit breaker trips",
		}, []string{"symbol", "reason"}),
		Equity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trendguard_equity",
			Help: "Mark-to-market equity",
		}, []string{"symbol"}),
		HedgeExposure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trendguard_hedge_exposure",
			Help: "Total hedge units held per asset across symbols",
		}, []string{"asset"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Bars, m.Signals, m.Trades, m.Rejected, m.BreakerTrips, m.Equity, m.HedgeExposure)
	return m
}

func (m *Metrics) Bar(symbol string) {
	if m == nil {
		return
	}
	m.Bars.WithLabelValues(symbol).Inc()
}

func (m *Metrics) Signal(symbol, signal string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(symbol, signal).Inc()
}

func (m *Metrics) Trade(symbol, side, reason string) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(symbol, side, reason).Inc()
}

func (m *Metrics) Reject(symbol, code string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(symbol, code).Inc()
}

func (m *Metrics) Trip(symbol, reason string) {
	if m == nil {
		return
	}
	m.BreakerTrips.WithLabelValues(symbol, reason).Inc()
}

func (m *Metrics) SetEquity(symbol string, v float64) {
	if m == nil {
		return
	}
	m.Equity.WithLabelValues(symbol).Set(v)
}

// SetHedgeExposure publishes per-asset totals, e.g. from HedgeBook.Snapshot.
func (m *Metrics) SetHedgeExposure(totals map[string]float64) {
	if m == nil {
		return
	}
	for asset, qty := range totals {
		m.HedgeExposure.WithLabelValues(asset).Set(qty)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
