package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExportsUpstreamCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetrics(reg)

	m.ObserveUpstream("backend", "cart.get", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveUpstream("backend", "cart.get", OutcomeFailure, 80*time.Millisecond)
	m.IncOrder("cash_on_delivery", OutcomeSuccess)
	m.IncOTP("signup", OutcomeRejected)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "upstream_requests_total", map[string]string{"endpoint": "cart.get", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch upstream success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_submissions_total", map[string]string{"payment_method": "cash_on_delivery"}); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "otp_verifications_total", map[string]string{"purpose": "signup", "outcome": OutcomeRejected}); err != nil {
		t.Fatalf("fetch otp: %v", err)
	} else if got != 1 {
		t.Fatalf("expected otp=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "upstream_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected a single duration series")
	}
	if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
		t.Fatalf("expected 2 duration samples, got %d", count)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *StorefrontMetrics
	m.ObserveUpstream("backend", "x", OutcomeSuccess, time.Second)
	m.IncOrder("", "")
	m.IncOTP("", "")

	empty := NewStorefrontMetrics(nil)
	empty.ObserveUpstream("backend", "x", OutcomeSuccess, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != v {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
