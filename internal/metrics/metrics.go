// Package metrics exposes Prometheus instrumentation for settlement passes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloutcast/settler/internal/domain"
)

// Metrics holds the settlement counters exported at /metrics.
type Metrics struct {
	runs          prometheus.Counter
	checked       prometheus.Counter
	closed        prometheus.Counter
	expired       prometheus.Counter
	skipped       *prometheus.CounterVec
	writeFailures prometheus.Counter
	runDuration   prometheus.Histogram
}

// New creates the settlement metric set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settler_runs_total",
			Help: "Settlement passes executed.",
		}),
		checked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settler_markets_checked_total",
			Help: "Markets examined across all passes.",
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settler_markets_closed_total",
			Help: "Markets settled on a price trigger.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settler_markets_expired_total",
			Help: "Time-bound markets parked as paused without settlement.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_markets_skipped_total",
			Help: "Markets left open this pass, by reason.",
		}, []string{"reason"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settler_write_failures_total",
			Help: "Per-market ledger transactions that failed.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settler_run_duration_seconds",
			Help:    "Wall-clock duration of a settlement pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.runs, m.checked, m.closed, m.expired,
		m.skipped, m.writeFailures, m.runDuration,
	)
	return m
}

// ObserveRun records the counters of one completed pass.
func (m *Metrics) ObserveRun(s domain.RunSummary) {
	m.runs.Inc()
	m.checked.Add(float64(s.Checked))
	m.closed.Add(float64(s.Closed))
	m.expired.Add(float64(s.Expired))
	m.skipped.WithLabelValues("no_match").Add(float64(s.SkippedNoMatch))
	m.skipped.WithLabelValues("no_price").Add(float64(s.SkippedNoPrice))
	m.skipped.WithLabelValues("unsupported").Add(float64(s.SkippedUnsupported))
	m.writeFailures.Add(float64(s.Failed))
	m.runDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
}
