// internal/metrics/metrics.go

// Package metrics 提供 Prometheus 指標：HTTP 請求與轉帳結果。
// 每個 Metrics 擁有獨立 Registry，測試之間互不干擾。
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transferd/internal/bank"
)

// Metrics 實作 bank.Recorder 與 bank.IncidentReporter。
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight     prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	transfers        *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	critical         prometheus.Counter
}

// New 建立並註冊所有 collector。
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms ~ 4s
		}, []string{"method", "route"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "total",
			Help:      "Transfers by outcome.",
		}, []string{"outcome"}),
		transferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Duration of transfers by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"outcome"}),
		critical: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "critical_failures_total",
			Help:      "Transfers that left the ledger inconsistent and need manual reconciliation.",
		}),
	}
	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.transfers,
		m.transferDuration,
		m.critical,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTransfer 實作 bank.Recorder。
func (m *Metrics) ObserveTransfer(o bank.Outcome, d time.Duration) {
	m.transfers.WithLabelValues(string(o)).Inc()
	m.transferDuration.WithLabelValues(string(o)).Observe(d.Seconds())
}

// ReportCritical 實作 bank.IncidentReporter。
func (m *Metrics) ReportCritical(_ context.Context, _ bank.Incident) {
	m.critical.Inc()
}

// Handler 回傳 /metrics 的 exposition handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware 記錄請求數、耗時與進行中請求；路徑使用 chi 的路由樣式避免高基數。
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
