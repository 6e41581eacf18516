package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRenewalMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRenewalMetrics(reg)

	m.IncSubmitted()
	m.IncSubmitted()
	m.IncDecision("approved")
	m.IncPaymentVerification(true)
	m.IncPaymentVerification(false)
	m.IncPaymentVerification(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name, label, value string
		want               float64
	}{
		{"renewals_submitted_total", "", "", 2},
		{"renewal_decisions_total", "decision", "approved", 1},
		{"payment_verifications_total", "result", "success", 1},
		{"payment_verifications_total", "result", "failed", 2},
	}
	for _, c := range checks {
		got, err := counterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%q}: expected %v, got %v", c.name, c.label, c.value, c.want, got)
		}
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewRenewalMetrics(nil)
	m.IncSubmitted()
	m.IncDecision("rejected")
	m.IncPaymentVerification(true)

	var nilMetrics *RenewalMetrics
	nilMetrics.IncSubmitted()
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label == "" {
				return metric.GetCounter().GetValue(), nil
			}
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}
