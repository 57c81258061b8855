package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// StorefrontMetrics records calls to upstream services and checkout outcomes.
type StorefrontMetrics struct {
	upstreamDuration *prometheus.HistogramVec
	upstreamCalls    *prometheus.CounterVec
	orders           *prometheus.CounterVec
	otp              *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of calls to the backend and OTP gateway in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream", "endpoint"})
	upstreamCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Calls to the backend and OTP gateway by outcome.",
	}, []string{"upstream", "endpoint", "outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by payment method and outcome.",
	}, []string{"payment_method", "outcome"})
	otp := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "OTP verification attempts by purpose and outcome.",
	}, []string{"purpose", "outcome"})
	reg.MustRegister(upstreamDuration, upstreamCalls, orders, otp)
	return &StorefrontMetrics{
		upstreamDuration: upstreamDuration,
		upstreamCalls:    upstreamCalls,
		orders:           orders,
		otp:              otp,
	}
}

// ObserveUpstream records one call to an upstream endpoint.
func (m *StorefrontMetrics) ObserveUpstream(upstream, endpoint, outcome string, duration time.Duration) {
	if m == nil || m.upstreamDuration == nil {
		return
	}
	upstream, endpoint = normalizeLabel(upstream), normalizeLabel(endpoint)
	m.upstreamDuration.WithLabelValues(upstream, endpoint).Observe(duration.Seconds())
	m.upstreamCalls.WithLabelValues(upstream, endpoint, normalizeLabel(outcome)).Inc()
}

// IncOrder counts an order submission attempt.
func (m *StorefrontMetrics) IncOrder(paymentMethod, outcome string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(paymentMethod), normalizeLabel(outcome)).Inc()
}

// IncOTP counts an OTP verification attempt.
func (m *StorefrontMetrics) IncOTP(purpose, outcome string) {
	if m == nil || m.otp == nil {
		return
	}
	m.otp.WithLabelValues(normalizeLabel(purpose), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
