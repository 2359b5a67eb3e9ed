// Package metrics holds the Prometheus instrumentation for the service.
// Methods are nil-receiver safe so wiring metrics stays optional in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates all service counters and histograms.
type Metrics struct {
	RegistrationsCreated    prometheus.Counter
	RegistrationsByLanguage *prometheus.CounterVec
	RegistrationsBySource   *prometheus.CounterVec
	ValidationOutcomes      *prometheus.CounterVec
	ValidateLatency         prometheus.Histogram

	SubscriptionRequestsCreated prometheus.Counter
	ProvisionFailures           prometheus.Counter
	NotificationFailures        prometheus.Counter

	ChangesDispatched *prometheus.CounterVec

	// TotalLast mirrors the redis-cached running totals, keyed the same way
	// as the realtime metric names ("registrations.created.total.last", ...).
	TotalLast *prometheus.GaugeVec
}

// New creates and registers all service metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "familyconnect_registrations_created_total",
			Help: "Total registrations submitted",
		}),
		RegistrationsByLanguage: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "familyconnect_registrations_language_total",
			Help: "Registrations by submitted language",
		}, []string{"language"}),
		RegistrationsBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "familyconnect_registrations_source_total",
			Help: "Registrations by source authority",
		}, []string{"authority"}),
		ValidationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "familyconnect_validation_outcomes_total",
			Help: "Validation runs by outcome",
		}, []string{"outcome"}),
		ValidateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "familyconnect_validation_duration_seconds",
			Help:    "Duration of one validation unit of work",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SubscriptionRequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "familyconnect_subscription_requests_created_total",
			Help: "Subscription requests emitted after successful validation",
		}),
		ProvisionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "familyconnect_provision_failures_total",
			Help: "Validated registrations that failed provisioning",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "familyconnect_notification_failures_total",
			Help: "Best-effort notification sends that failed",
		}),
		ChangesDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "familyconnect_changes_dispatched_total",
			Help: "Change records dispatched by action",
		}, []string{"action"}),
		TotalLast: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "familyconnect_running_total_last",
			Help: "Cache-backed running totals by metric key",
		}, []string{"key"}),
	}
}

func (m *Metrics) IncRegistrationCreated(language, authority string) {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
	if language != "" {
		m.RegistrationsByLanguage.WithLabelValues(language).Inc()
	}
	m.RegistrationsBySource.WithLabelValues(authority).Inc()
}

func (m *Metrics) IncValidationOutcome(outcome string) {
	if m != nil {
		m.ValidationOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m != nil {
		m.ValidateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncSubscriptionRequestCreated() {
	if m != nil {
		m.SubscriptionRequestsCreated.Inc()
	}
}

func (m *Metrics) IncProvisionFailure() {
	if m != nil {
		m.ProvisionFailures.Inc()
	}
}

func (m *Metrics) IncNotificationFailure() {
	if m != nil {
		m.NotificationFailures.Inc()
	}
}

func (m *Metrics) IncChangeDispatched(action string) {
	if m != nil {
		m.ChangesDispatched.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) SetTotalLast(key string, value float64) {
	if m != nil {
		m.TotalLast.WithLabelValues(key).Set(value)
	}
}
