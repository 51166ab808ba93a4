// Package telemetry exposes the engine's Prometheus instrumentation.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide collectors. Construct once and inject; a nil
// *Metrics disables instrumentation.
type Metrics struct {
	BacktestsTotal   prometheus.Counter
	TradesSimulated  prometheus.Counter
	SignalsGenerated prometheus.Counter
	BacktestDuration prometheus.Histogram
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BacktestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quantdesk",
			Name:      "backtests_total",
			Help:      "Completed backtest runs.",
		}),
		TradesSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quantdesk",
			Name:      "trades_simulated_total",
			Help:      "Trades closed by the backtest engine.",
		}),
		SignalsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quantdesk",
			Name:      "quant_signals_total",
			Help:      "Quant signals generated.",
		}),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quantdesk",
			Name:      "backtest_duration_seconds",
			Help:      "Wall-clock duration of backtest runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveBacktest records one completed run.
func (m *Metrics) ObserveBacktest(seconds float64, trades int) {
	if m == nil {
		return
	}
	m.BacktestsTotal.Inc()
	m.TradesSimulated.Add(float64(trades))
	m.BacktestDuration.Observe(seconds)
}

// ObserveSignal records one generated quant signal.
func (m *Metrics) ObserveSignal() {
	if m == nil {
		return
	}
	m.SignalsGenerated.Inc()
}
