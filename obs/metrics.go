package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Flow outcome labels recorded on terminal transitions.
const (
	ResultSuccess          = "success"
	ResultProcessorError   = "processor_error"
	ResultServerError      = "server_error"
	ResultNetworkError     = "network_error"
	ResultValidationError  = "validation_error"
	ResultUnexpectedStatus = "unexpected_status"
)

// FlowMetrics groups Prometheus collectors for payment flow observability.
type FlowMetrics struct {
	ConfirmTotal *prometheus.CounterVec
	RoundTripDur *prometheus.HistogramVec
}

// NewFlowMetrics registers and returns payment flow collectors.
func NewFlowMetrics(namespace string, reg prometheus.Registerer) *FlowMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &FlowMetrics{
		ConfirmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Terminal payment flow outcomes by flow and result.",
		}, []string{"flow", "result"}),
		RoundTripDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_server_roundtrip_ms",
			Help:      "Application server round-trip latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"message"}),
	}
	reg.MustRegister(m.ConfirmTotal, m.RoundTripDur)
	return m
}

// Outcome records a terminal flow transition. Safe on a nil receiver so
// metrics stay optional in tests.
func (m *FlowMetrics) Outcome(flow, result string) {
	if m == nil {
		return
	}
	m.ConfirmTotal.WithLabelValues(flow, result).Inc()
}

// ObserveRoundTrip records one server round-trip duration.
func (m *FlowMetrics) ObserveRoundTrip(message string, millis float64) {
	if m == nil {
		return
	}
	m.RoundTripDur.WithLabelValues(message).Observe(millis)
}
