package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API collectors on a registry owned by one server.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	completions     prometheus.Counter
	completionTime  prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "endpoint"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escaperoom_stage_attempts_total",
				Help: "Stage attempts recorded through the API",
			},
			[]string{"successful"},
		),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escaperoom_completions_total",
			Help: "Leaderboard entries recorded through the API",
		}),
		completionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "escaperoom_completion_seconds",
			Help:    "Recorded completion times",
			Buckets: []float64{60, 120, 300, 600, 900, 1200, 1800, 3600},
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.attempts,
		m.completions,
		m.completionTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware counts and times every request by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (m *Metrics) observeAttempt(successful bool) {
	m.attempts.WithLabelValues(strconv.FormatBool(successful)).Inc()
}

func (m *Metrics) observeCompletion(seconds int) {
	m.completions.Inc()
	m.completionTime.Observe(float64(seconds))
}
