// Package metrics 提供合成流程的 Prometheus 指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yeezyframe"

// Collector 每个实例使用独立的 registry，测试里可以随意创建
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Removals        *prometheus.CounterVec
	RemovalDuration prometheus.Histogram
	CacheHits       prometheus.Counter

	Compositions *prometheus.CounterVec
	Exports      *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Background removal calls by outcome",
		}, []string{"outcome"}),
		RemovalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "removal_duration_seconds",
			Help:      "Background removal call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 30},
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removal_cache_hits_total",
			Help:      "Cutouts served from cache",
		}),
		Compositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compositions_total",
			Help:      "Composition attempts by outcome",
		}, []string{"outcome"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by outcome",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Removals,
		c.RemovalDuration,
		c.CacheHits,
		c.Compositions,
		c.Exports,
	)
	return c
}

// ObserveRemoval 记录一次抠图调用
func (c *Collector) ObserveRemoval(err error, cost time.Duration) {
	if c == nil {
		return
	}
	c.Removals.WithLabelValues(outcome(err)).Inc()
	c.RemovalDuration.Observe(cost.Seconds())
}

func (c *Collector) ObserveCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

func (c *Collector) ObserveComposition(err error) {
	if c == nil {
		return
	}
	c.Compositions.WithLabelValues(outcome(err)).Inc()
}

func (c *Collector) ObserveExport(err error) {
	if c == nil {
		return
	}
	c.Exports.WithLabelValues(outcome(err)).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
