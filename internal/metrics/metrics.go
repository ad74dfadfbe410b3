package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the client-side collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RefreshTotal     *prometheus.CounterVec
	TeardownsTotal   prometheus.Counter
	SubmissionsTotal *prometheus.CounterVec
	CompletionsTotal *prometheus.CounterVec
	LookupsTotal     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg. Passing nil registers nowhere, which
// keeps tests from colliding on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mobcash_client_requests_total",
				Help: "Outbound API requests by method and response status",
			},
			[]string{"method", "status"},
		),
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mobcash_client_token_refresh_total",
				Help: "Access token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		TeardownsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mobcash_client_session_teardowns_total",
				Help: "Sessions cleared after a terminal authorization failure",
			},
		),
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mobcash_wizard_submissions_total",
				Help: "Transaction submissions by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mobcash_completion_routes_total",
				Help: "Post-submission completion paths taken",
			},
			[]string{"route"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mobcash_identity_lookups_total",
				Help: "External identity lookups by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mobcash_client_request_duration_seconds",
				Help:    "Outbound API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// ObserveRequest records one outbound round-trip. Status 0 means a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

// Refresh records a refresh attempt outcome ("ok" or "failed").
func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
}

// Teardown records a forced logout.
func (m *Metrics) Teardown() {
	if m == nil {
		return
	}
	m.TeardownsTotal.Inc()
}

// Submission records a wizard submission.
func (m *Metrics) Submission(direction, outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(direction, outcome).Inc()
}

// Completion records the completion route taken.
func (m *Metrics) Completion(route string) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(route).Inc()
}

// Lookup records an identity lookup outcome.
func (m *Metrics) Lookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}
