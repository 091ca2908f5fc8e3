// Package metrics holds the Prometheus instruments of the signal webhook.
//
//   - tradegate_signals_total{outcome}            every handled request by outcome
//   - tradegate_signal_duration_seconds{outcome}  end-to-end handling latency
//   - tradegate_sink_deliveries_total{sink,status} notify/log delivery results
//   - tradegate_ledger_read_failures_total{read}  degraded pnl/open-count reads
//   - tradegate_equity_usd                        equity used by the last sized signal
//   - tradegate_circuit_state{name}               0 closed, 1 open, 2 half-open
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_signals_total",
			Help: "Signals handled, by outcome",
		},
		[]string{"outcome"},
	)

	signalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradegate_signal_duration_seconds",
			Help:    "Time spent handling one signal",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	sinkDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_sink_deliveries_total",
			Help: "Best-effort sink deliveries, by sink and status",
		},
		[]string{"sink", "status"},
	)

	ledgerReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_ledger_read_failures_total",
			Help: "Ledger reads that failed and were replaced by a default",
		},
		[]string{"read"},
	)

	equityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradegate_equity_usd",
			Help: "Equity used for the most recent sizing",
		},
	)

	circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradegate_circuit_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(signalDuration)
	prometheus.MustRegister(sinkDeliveries)
	prometheus.MustRegister(ledgerReadFailures)
	prometheus.MustRegister(equityUSD)
	prometheus.MustRegister(circuitState)
}

// Handler serves the default registry in text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordSignal(outcome string, elapsed time.Duration) {
	signalsTotal.WithLabelValues(outcome).Inc()
	signalDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func RecordSinkDelivery(sink, status string) {
	sinkDeliveries.WithLabelValues(sink, status).Inc()
}

func RecordLedgerReadFailure(read string) {
	ledgerReadFailures.WithLabelValues(read).Inc()
}

func SetEquity(usd float64) {
	equityUSD.Set(usd)
}

func SetCircuitState(name string, state int) {
	circuitState.WithLabelValues(name).Set(float64(state))
}
