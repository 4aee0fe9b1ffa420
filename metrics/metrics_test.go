package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/wingchucks/iopps-sub007/metrics"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	collector.RecordExpired("jobs", 3)
	collector.RecordExpired("jobs", 2)
	collector.RecordRunError("events")
	collector.RecordAuthDecision("ok")
	collector.RecordAuthDecision("forbidden")
	collector.RecordUnsubscribe("applied")

	families, err := testutil.GatherAndCount(reg,
		"iopps_lifecycle_expired_total",
		"iopps_lifecycle_run_errors_total",
		"iopps_auth_decisions_total",
		"iopps_unsubscribe_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 5, families)
}
