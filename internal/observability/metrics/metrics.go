package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the application's Prometheus instruments.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	batchesSubmitted prometheus.Counter
	batchesApproved  prometheus.Counter
	batchesRejected  prometheus.Counter
	itemsApplied     prometheus.Counter
	itemsFailed      prometheus.Counter
	invoicesIssued   prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unis_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unis_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		batchesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_payment_batches_submitted_total",
			Help: "Payment batches accepted for approval.",
		}),
		batchesApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_payment_batches_approved_total",
			Help: "Payment batches approved by HQ.",
		}),
		batchesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_payment_batches_rejected_total",
			Help: "Payment batches rejected by HQ.",
		}),
		itemsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_payment_items_applied_total",
			Help: "Batch items settled against invoices.",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_payment_items_failed_total",
			Help: "Batch items that failed settlement during approval.",
		}),
		invoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unis_fee_invoices_issued_total",
			Help: "Fee invoices materialized from fee structures.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.batchesSubmitted,
		m.batchesApproved,
		m.batchesRejected,
		m.itemsApplied,
		m.itemsFailed,
		m.invoicesIssued,
	)
	return m
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordBatchSubmitted()     { m.batchesSubmitted.Inc() }
func (m *Metrics) RecordBatchApproved()      { m.batchesApproved.Inc() }
func (m *Metrics) RecordBatchRejected()      { m.batchesRejected.Inc() }
func (m *Metrics) RecordInvoiceIssued()      { m.invoicesIssued.Inc() }
func (m *Metrics) RecordItemOutcomes(applied, failed int) {
	m.itemsApplied.Add(float64(applied))
	m.itemsFailed.Add(float64(failed))
}
