package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the billing core.
type Metrics struct {
	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	billsCreated   *prometheus.CounterVec
	invoices       *prometheus.CounterVec
	invoiceAmount  *prometheus.HistogramVec
	payments       *prometheus.CounterVec
	paymentAmount  *prometheus.HistogramVec
	batchRuns      *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	limiterDenials *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics for telemetry.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_api_requests_total",
		Help: "Counts API requests by method, status, and tenant.",
	}, []string{"method", "status", "tenant"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waterworks_api_duration_seconds",
		Help:    "API request latency per method/tenant.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "tenant"})

	billsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_bills_created_total",
		Help: "Bills created by type.",
	}, []string{"tenant", "bill_type"})

	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_invoices_total",
		Help: "Invoices generated by status.",
	}, []string{"tenant", "status"})

	invoiceAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waterworks_invoice_amount",
		Help:    "Invoice amount distribution.",
		Buckets: []float64{10, 100, 500, 1000, 5000, 10000, 50000},
	}, []string{"tenant"})

	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_payments_total",
		Help: "Payments recorded by method and outcome.",
	}, []string{"tenant", "method", "outcome"})

	paymentAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waterworks_payment_amount",
		Help:    "Payment amount distribution.",
		Buckets: []float64{10, 100, 500, 1000, 5000, 10000, 50000},
	}, []string{"tenant"})

	batchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_batch_runs_total",
		Help: "Billing batch runs by outcome.",
	}, []string{"tenant", "status"})

	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waterworks_batch_duration_seconds",
		Help:    "Billing batch run durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant"})

	limiterDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterworks_rate_limit_denied_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"tenant", "endpoint"})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		billsCreated,
		invoices,
		invoiceAmount,
		payments,
		paymentAmount,
		batchRuns,
		batchDuration,
		limiterDenials,
	)

	return &Metrics{
		apiRequests:    apiRequests,
		apiDuration:    apiDuration,
		billsCreated:   billsCreated,
		invoices:       invoices,
		invoiceAmount:  invoiceAmount,
		payments:       payments,
		paymentAmount:  paymentAmount,
		batchRuns:      batchRuns,
		batchDuration:  batchDuration,
		limiterDenials: limiterDenials,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, status, tenant string, duration time.Duration) {
	if m == nil {
		return
	}
	tenantLabel := sanitizeLabel(tenant)
	methodLabel := sanitizeLabel(method)
	m.apiRequests.WithLabelValues(methodLabel, status, tenantLabel).Inc()
	m.apiDuration.WithLabelValues(methodLabel, tenantLabel).Observe(duration.Seconds())
}

// ObserveBillCreated increments the bill counter.
func (m *Metrics) ObserveBillCreated(tenant, billType string) {
	if m == nil {
		return
	}
	m.billsCreated.WithLabelValues(sanitizeLabel(tenant), sanitizeLabel(billType)).Inc()
}

// ObserveInvoice records invoice creation stats by status and amount.
func (m *Metrics) ObserveInvoice(tenant, status string, amount float64) {
	if m == nil {
		return
	}
	tenantLabel := sanitizeLabel(tenant)
	m.invoices.WithLabelValues(tenantLabel, sanitizeLabel(status)).Inc()
	m.invoiceAmount.WithLabelValues(tenantLabel).Observe(amount)
}

// ObservePayment records a payment by method and outcome.
func (m *Metrics) ObservePayment(tenant, method, outcome string, amount float64) {
	if m == nil {
		return
	}
	tenantLabel := sanitizeLabel(tenant)
	m.payments.WithLabelValues(tenantLabel, sanitizeLabel(method), sanitizeLabel(outcome)).Inc()
	m.paymentAmount.WithLabelValues(tenantLabel).Observe(amount)
}

// ObserveBatchRun records one batch run outcome and duration.
func (m *Metrics) ObserveBatchRun(tenant, status string, duration time.Duration) {
	if m == nil {
		return
	}
	tenantLabel := sanitizeLabel(tenant)
	m.batchRuns.WithLabelValues(tenantLabel, sanitizeLabel(status)).Inc()
	m.batchDuration.WithLabelValues(tenantLabel).Observe(duration.Seconds())
}

// ObserveRateLimitDenied increments the limiter denial counter.
func (m *Metrics) ObserveRateLimitDenied(tenant, endpoint string) {
	if m == nil {
		return
	}
	m.limiterDenials.WithLabelValues(sanitizeLabel(tenant), sanitizeLabel(endpoint)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
