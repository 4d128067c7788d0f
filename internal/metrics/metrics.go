package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for identity resolution
type Metrics struct {
	Resolutions      *prometheus.CounterVec
	ContactsCreated  *prometheus.CounterVec
	PrimariesDemoted prometheus.Counter
	Failures         *prometheus.CounterVec
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_resolutions_total",
			Help: "Completed identify calls by outcome (created, attached, merged, promoted, unchanged)",
		}, []string{"outcome"}),
		ContactsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_contacts_created_total",
			Help: "Contacts inserted by link precedence",
		}, []string{"precedence"}),
		PrimariesDemoted: f.NewCounter(prometheus.CounterOpts{
			Name: "identity_primaries_demoted_total",
			Help: "Primary contacts demoted to secondary by a merge",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_failures_total",
			Help: "Failed identify calls by reason (validation, conflict, storage)",
		}, []string{"reason"}),
	}
}

// ObserveResolution counts one successful identify call
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveCreated counts one inserted contact
func (m *Metrics) ObserveCreated(precedence string) {
	if m == nil {
		return
	}
	m.ContactsCreated.WithLabelValues(precedence).Inc()
}

// AddDemoted adds n demoted primaries
func (m *Metrics) AddDemoted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.PrimariesDemoted.Add(float64(n))
}

// ObserveFailure counts one failed identify call
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(reason).Inc()
}
