package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RenewalMetrics counts renewal submissions, admin decisions and payment checks.
type RenewalMetrics struct {
	submitted    prometheus.Counter
	decisions    *prometheus.CounterVec
	verification *prometheus.CounterVec
}

// NewRenewalMetrics registers the renewal collectors on reg. A nil registerer
// yields a no-op recorder.
func NewRenewalMetrics(reg prometheus.Registerer) *RenewalMetrics {
	if reg == nil {
		return &RenewalMetrics{}
	}
	submitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "renewals_submitted_total",
		Help: "Renewal requests persisted after a verified payment.",
	})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "renewal_decisions_total",
		Help: "Admin decisions on renewal requests.",
	}, []string{"decision"})
	verification := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment gateway verification outcomes.",
	}, []string{"result"})
	reg.MustRegister(submitted, decisions, verification)
	return &RenewalMetrics{
		submitted:    submitted,
		decisions:    decisions,
		verification: verification,
	}
}

// IncSubmitted counts a renewal persisted after its payment was verified.
func (m *RenewalMetrics) IncSubmitted() {
	if m == nil || m.submitted == nil {
		return
	}
	m.submitted.Inc()
}

// IncDecision records an "approved" or "rejected" outcome.
func (m *RenewalMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

// IncPaymentVerification records a gateway verification as success or failed.
func (m *RenewalMetrics) IncPaymentVerification(ok bool) {
	if m == nil || m.verification == nil {
		return
	}
	result := "failed"
	if ok {
		result = "success"
	}
	m.verification.WithLabelValues(result).Inc()
}
