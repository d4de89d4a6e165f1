package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout and reconciliation pipeline activity.
type PaymentMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	checkoutTotal   *prometheus.CounterVec
	webhookTotal    *prometheus.CounterVec
	reconciled      *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment pipeline metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Duration of outbound payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	checkoutTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	webhookTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_total",
		Help: "Received payment webhook events by result.",
	}, []string{"result"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_reconciled_total",
		Help: "Transactions moved to a terminal status, by status.",
	}, []string{"status"})
	reg.MustRegister(gatewayDuration, checkoutTotal, webhookTotal, reconciled)
	return &PaymentMetrics{
		gatewayDuration: gatewayDuration,
		checkoutTotal:   checkoutTotal,
		webhookTotal:    webhookTotal,
		reconciled:      reconciled,
	}
}

// ObserveGatewayDuration records how long a gateway call took.
func (m *PaymentMetrics) ObserveGatewayDuration(operation string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCheckout counts a checkout attempt with the given outcome.
func (m *PaymentMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkoutTotal == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook counts a received webhook delivery with the given result.
func (m *PaymentMetrics) IncWebhook(result string) {
	if m == nil || m.webhookTotal == nil {
		return
	}
	m.webhookTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReconciled counts a transaction reaching a terminal status.
func (m *PaymentMetrics) IncReconciled(status string) {
	if m == nil || m.reconciled == nil {
		return
	}
	m.reconciled.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
