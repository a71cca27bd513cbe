package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	DependencyErrors *prometheus.CounterVec
	ActiveWebSockets prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		DependencyErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dependency_health_failures_total",
				Help: "Failed health checks per backing service",
			},
			[]string{"dependency"},
		),
		ActiveWebSockets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "websocket_connections_active",
				Help: "Open relay connections",
			},
		),
	}

	registerer.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.DependencyErrors,
		metrics.ActiveWebSockets,
	)
	return metrics
}

func MetricsMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			status,
		).Inc()

		metrics.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}
