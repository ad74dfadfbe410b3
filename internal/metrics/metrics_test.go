package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", 200, 0.1)
	m.ObserveRequest("GET", 200, 0.2)
	m.ObserveRequest("POST", 0, 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDomainCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Refresh("ok")
	m.Teardown()
	m.Submission("deposit", "ok")
	m.Completion("ussd")
	m.Lookup("wrong_currency")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RefreshTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TeardownsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("deposit", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("ussd")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupsTotal.WithLabelValues("wrong_currency")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", 500, 1)
	m.Refresh("failed")
	m.Teardown()
	m.Submission("withdrawal", "failed")
	m.Completion("landing")
	m.Lookup("ok")
}
