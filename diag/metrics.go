package diag

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the Prometheus-backed implementation of ipc.Metrics (a
// structural match, not a declared one — diag doesn't import ipc).
type Metrics struct {
	holderCount  prometheus.Gauge
	mitmForwards prometheus.Counter
}

// NewMetrics registers its gauge/counter pair against reg and returns the
// handle ServerManager.SetMetrics takes.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		holderCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hipc",
			Name:      "holder_count",
			Help:      "Number of live server/session holders tracked by the manager.",
		}),
		mitmForwards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hipc",
			Name:      "mitm_forwards_total",
			Help:      "Number of requests replayed upstream through a MITM forward session.",
		}),
	}
	reg.MustRegister(m.holderCount, m.mitmForwards)
	return m
}

// SetHolderCount implements ipc.Metrics.
func (m *Metrics) SetHolderCount(n int) {
	m.holderCount.Set(float64(n))
}

// IncMitmForward implements ipc.Metrics.
func (m *Metrics) IncMitmForward() {
	m.mitmForwards.Inc()
}
