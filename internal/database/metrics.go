package database

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	modePooled = "pooled"
	modeDirect = "direct"
)

// Metrics holds the Prometheus collectors for the pool and the executor.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	degraded      prometheus.Gauge
	acquires      *prometheus.CounterVec
	acquireWait   prometheus.Histogram
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	slowQueries   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_degraded",
			Help:      "1 when the connection pool could not be built and every acquire opens a direct connection",
		}),
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "acquires_total",
			Help:      "Connection acquisitions by mode and result",
		}, []string{"mode", "result"}),
		acquireWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting for a connection",
			Buckets:   prometheus.DefBuckets,
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Units of work by connection mode and outcome (commit, rollback, error)",
		}, []string{"mode", "outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of a unit of work from BEGIN to COMMIT or ROLLBACK",
			Buckets:   prometheus.DefBuckets,
		}),
		slowQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "slow_queries_total",
			Help:      "Units of work slower than the configured slow query threshold",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.degraded, m.acquires, m.acquireWait, m.queries, m.queryDuration, m.slowQueries)
	}

	return m
}

func (m *Metrics) setDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}

func (m *Metrics) observeAcquire(mode string, err error, wait time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.acquires.WithLabelValues(mode, result).Inc()
	m.acquireWait.Observe(wait.Seconds())
}

func (m *Metrics) observeQuery(mode, outcome string, took time.Duration, slow bool) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(mode, outcome).Inc()
	m.queryDuration.Observe(took.Seconds())
	if slow {
		m.slowQueries.Inc()
	}
}
