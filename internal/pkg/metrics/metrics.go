// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pharmacy_pos"

// Metrics holds the ledger's business and HTTP metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SalesTotal          *prometheus.CounterVec
	SaleFailures        *prometheus.CounterVec
	OversoldLines       prometheus.Counter
	UnitsSold           *prometheus.CounterVec
	StockAdjustments    *prometheus.CounterVec
	ReconciliationCases *prometheus.CounterVec
	PostCommitFailures  *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.SalesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_total",
		Help:      "Committed sales by enforcement mode",
	}, []string{"mode"})

	m.SaleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sale_failures_total",
		Help:      "Rejected or rolled back sales by error code",
	}, []string{"code"})

	m.OversoldLines = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oversold_lines_total",
		Help:      "Sale lines accepted with a stock deficit",
	})

	m.UnitsSold = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_sold_total",
		Help:      "Units sold by subdivision policy",
	}, []string{"policy"})

	m.StockAdjustments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_adjustments_total",
		Help:      "Manual and reconciliation stock adjustments by mode",
	}, []string{"mode"})

	m.ReconciliationCases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliation_cases_total",
		Help:      "Reconciliation case transitions by resulting status",
	}, []string{"status"})

	m.PostCommitFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "post_commit_failures_total",
		Help:      "Best-effort tasks that failed after their transaction committed",
	}, []string{"task"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SalesTotal,
		m.SaleFailures,
		m.OversoldLines,
		m.UnitsSold,
		m.StockAdjustments,
		m.ReconciliationCases,
		m.PostCommitFailures,
	)

	return m
}

// Handler returns the /metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed HTTP request
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// SaleCommitted records a committed sale
func (m *Metrics) SaleCommitted(ignoreStock bool, oversold int) {
	if m == nil {
		return
	}
	mode := "strict"
	if ignoreStock {
		mode = "override"
	}
	m.SalesTotal.WithLabelValues(mode).Inc()
	m.OversoldLines.Add(float64(oversold))
}

// SaleFailed records a sale that did not commit
func (m *Metrics) SaleFailed(code string) {
	if m == nil {
		return
	}
	m.SaleFailures.WithLabelValues(code).Inc()
}

// UnitsSoldBy records units sold for a subdivision policy
func (m *Metrics) UnitsSoldBy(policy string, units int) {
	if m == nil {
		return
	}
	m.UnitsSold.WithLabelValues(policy).Add(float64(units))
}

// StockAdjusted records a stock adjustment
func (m *Metrics) StockAdjusted(mode string) {
	if m == nil {
		return
	}
	m.StockAdjustments.WithLabelValues(mode).Inc()
}

// CaseTransitioned records a reconciliation case entering a status
func (m *Metrics) CaseTransitioned(status string) {
	if m == nil {
		return
	}
	m.ReconciliationCases.WithLabelValues(status).Inc()
}

// PostCommitFailed records a failed best-effort task
func (m *Metrics) PostCommitFailed(task string) {
	if m == nil {
		return
	}
	m.PostCommitFailures.WithLabelValues(task).Inc()
}
