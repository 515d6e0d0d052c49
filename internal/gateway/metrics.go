package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks gateway-level counters, exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	chatRequests prometheus.Counter
	chatErrors   prometheus.Counter
	compactions  prometheus.Counter
	sweptTotal   prometheus.Counter
	sweepErrors  prometheus.Counter
	chatDuration prometheus.Histogram
}

// NewMetrics creates the metric set on its own registry so multiple
// gateways (tests) never collide on the default one.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		chatRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_chat_requests_total",
			Help: "Chat requests received.",
		}),
		chatErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_chat_errors_total",
			Help: "Chat requests that failed.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_compactions_total",
			Help: "Rolling-context compactions performed.",
		}),
		sweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_swept_sessions_total",
			Help: "Idle sessions destroyed by the expiry sweep.",
		}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_sweep_errors_total",
			Help: "Per-session sweep failures (retried next tick).",
		}),
		chatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiond_chat_duration_seconds",
			Help:    "End-to-end chat latency including generation.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.chatRequests,
		m.chatErrors,
		m.compactions,
		m.sweptTotal,
		m.sweepErrors,
		m.chatDuration,
	)
	return m
}

// RecordSweep feeds per-tick sweep counts (wired into the cron job).
func (m *Metrics) RecordSweep(swept, failed int) {
	m.sweptTotal.Add(float64(swept))
	m.sweepErrors.Add(float64(failed))
}
