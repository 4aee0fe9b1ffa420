// Package metrics exposes Prometheus instrumentation for the lifecycle
// jobs and the auth boundary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and records the service metrics.
type Collector struct {
	expiredTotal     *prometheus.CounterVec
	runErrorsTotal   *prometheus.CounterVec
	authTotal        *prometheus.CounterVec
	unsubscribeTotal *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with the given
// registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		expiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iopps_lifecycle_expired_total",
			Help: "Entities transitioned by the lifecycle expirer, per family.",
		}, []string{"family"}),
		runErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iopps_lifecycle_run_errors_total",
			Help: "Fatal expirer invocations (database unreachable), per family.",
		}, []string{"family"}),
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iopps_auth_decisions_total",
			Help: "Credential verification outcomes at the API boundary.",
		}, []string{"outcome"}),
		unsubscribeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iopps_unsubscribe_total",
			Help: "Unsubscribe callback outcomes.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.expiredTotal, c.runErrorsTotal, c.authTotal, c.unsubscribeTotal)
	return c
}

// RecordExpired counts entities transitioned in one family pass.
func (c *Collector) RecordExpired(family string, count int) {
	c.expiredTotal.WithLabelValues(family).Add(float64(count))
}

// RecordRunError counts a fatal expirer invocation for a family.
func (c *Collector) RecordRunError(family string) {
	c.runErrorsTotal.WithLabelValues(family).Inc()
}

// RecordAuthDecision counts one verification outcome ("ok", "unauthorized",
// "invalid", "forbidden").
func (c *Collector) RecordAuthDecision(outcome string) {
	c.authTotal.WithLabelValues(outcome).Inc()
}

// RecordUnsubscribe counts one unsubscribe callback outcome ("verified",
// "applied", "rejected").
func (c *Collector) RecordUnsubscribe(outcome string) {
	c.unsubscribeTotal.WithLabelValues(outcome).Inc()
}
