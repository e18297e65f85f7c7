// Package metrics 统计面板的 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	fetchesTotal     *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	fetchesInFlight  prometheus.Gauge
	recordsProcessed *prometheus.CounterVec

	recordsImported *prometheus.CounterVec
	catalogConfigs  prometheus.Gauge
}

// NewCollector 在默认注册表上创建指标收集器
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry 在指定注册表上创建指标收集器
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	c := &Collector{}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.fetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_fetches_total",
			Help:      "Total number of token length aggregations",
		},
		[]string{"schema", "status"},
	)

	c.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_fetch_duration_seconds",
			Help:      "Token length aggregation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"schema"},
	)

	c.fetchesInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_fetches_in_flight",
			Help:      "Number of aggregations currently running",
		},
	)

	c.recordsProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of records tokenized",
		},
		[]string{"schema"},
	)

	c.recordsImported = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_imported_total",
			Help:      "Total number of dataset records stored",
		},
		[]string{"source"},
	)

	c.catalogConfigs = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_configs",
			Help:      "Number of configs offered by the dataset selector",
		},
	)

	return c
}

// RecordHTTPRequest 记录HTTP请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// FetchStarted 一次聚合开始，返回结束回调
func (c *Collector) FetchStarted(schemaTag string) func(records int, err error) {
	start := time.Now()
	c.fetchesInFlight.Inc()
	return func(records int, err error) {
		c.fetchesInFlight.Dec()
		status := "success"
		if err != nil {
			status = "error"
		}
		c.fetchesTotal.WithLabelValues(schemaTag, status).Inc()
		c.fetchDuration.WithLabelValues(schemaTag).Observe(time.Since(start).Seconds())
		if records > 0 {
			c.recordsProcessed.WithLabelValues(schemaTag).Add(float64(records))
		}
	}
}

// RecordImport 记录写入的记录数，source 为 upload、hub 或 ingest
func (c *Collector) RecordImport(source string, records int) {
	c.recordsImported.WithLabelValues(source).Add(float64(records))
}

// SetCatalogConfigs 更新目录中可选配置数
func (c *Collector) SetCatalogConfigs(n int) {
	c.catalogConfigs.Set(float64(n))
}
