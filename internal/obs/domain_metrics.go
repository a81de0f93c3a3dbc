package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteCalculationsTotal counts quote calculations by outcome.
	QuoteCalculationsTotal *prometheus.CounterVec
	// QuoteCalculationDuration records calculation latency in milliseconds.
	QuoteCalculationDuration *prometheus.HistogramVec
	// QuoteWarningsTotal counts non-fatal calculation warnings by code.
	QuoteWarningsTotal *prometheus.CounterVec
	// QuoteFatalErrorsTotal counts fatal calculation errors by code.
	QuoteFatalErrorsTotal *prometheus.CounterVec
	// RefdataSnapshotLoadsTotal tracks reference data load attempts.
	RefdataSnapshotLoadsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteCalculationsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_calculations_total",
			Help:      "Count of quote calculations by outcome.",
		}, []string{"result"}))
		QuoteCalculationDuration = registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_calculation_duration_ms",
			Help:      "Quote calculation latency in milliseconds.",
			Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"result"}))
		QuoteWarningsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_warnings_total",
			Help:      "Count of non-fatal quote warnings by code.",
		}, []string{"code"}))
		QuoteFatalErrorsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_fatal_errors_total",
			Help:      "Count of fatal quote calculation errors by code.",
		}, []string{"code"}))
		RefdataSnapshotLoadsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refdata_snapshot_loads_total",
			Help:      "Count of reference data snapshot loads by source and outcome.",
		}, []string{"source", "result"}))
	})
}

// ObserveRefdataLoad increments the snapshot load counter when domain metrics are registered.
func ObserveRefdataLoad(source, result string) {
	if RefdataSnapshotLoadsTotal != nil {
		RefdataSnapshotLoadsTotal.WithLabelValues(source, result).Inc()
	}
}
